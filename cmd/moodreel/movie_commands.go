package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moodreel/internal/curation"
	"moodreel/internal/maintenance"
	"moodreel/internal/metrics"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/taxonomy"
	"moodreel/internal/tmdb"
)

type movieView struct {
	ID          int64    `json:"id"`
	TMDBID      int64    `json:"tmdb_id"`
	Title       string   `json:"title"`
	Year        int      `json:"year,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	VoteAverage float64  `json:"vote_average"`
	IMDBRating  float64  `json:"imdb_rating"`
}

type suggestionView struct {
	ProfileID int64    `json:"profile_id"`
	Score     *float64 `json:"relevance_score"`
	Rank      *int     `json:"rank"`
	Reason    string   `json:"reason,omitempty"`
}

type associationView struct {
	MainSentimentID int64   `json:"main_sentiment_id"`
	SubSentimentID  int64   `json:"sub_sentiment_id"`
	SubSentiment    string  `json:"sub_sentiment"`
	Relevance       float64 `json:"relevance"`
	Explanation     string  `json:"explanation"`
}

func toMovieView(m taxonomy.Movie) movieView {
	return movieView{
		ID:          m.ID,
		TMDBID:      m.TMDBID,
		Title:       m.Title,
		Year:        m.Year,
		Genres:      m.Genres,
		VoteAverage: m.VoteAverage,
		IMDBRating:  m.IMDBRating,
	}
}

func newMovieCommand(ctx *commandContext) *cobra.Command {
	movieCmd := &cobra.Command{
		Use:   "movie",
		Short: "Manage the movie catalog",
	}
	movieCmd.AddCommand(newMovieAddCommand(ctx))
	movieCmd.AddCommand(newMovieListCommand(ctx))
	movieCmd.AddCommand(newMovieShowCommand(ctx))
	return movieCmd
}

func newMovieAddCommand(ctx *commandContext) *cobra.Command {
	var (
		tmdbID     int64
		profileIDs []int64
		imdbRating float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Fetch a movie from TMDB and open suggestions for profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireTMDB(); err != nil {
				return err
			}
			if tmdbID <= 0 {
				return services.Wrap(services.ErrValidation, "cli", "movie add", "--tmdb-id is required", nil)
			}
			if len(profileIDs) == 0 {
				return services.Wrap(services.ErrValidation, "cli", "movie add", "at least one --profile is required", nil)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
				tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond))
			if err != nil {
				return err
			}
			intake := curation.NewIntake(cfg, st, client, logger, metrics.New())

			var result curation.IntakeResult
			err = ctx.withLock(cmd.Context(), maintenance.Shared, func() error {
				result, err = intake.Add(cmd.Context(), curation.IntakeRequest{
					TMDBID:     tmdbID,
					ProfileIDs: profileIDs,
					IMDBRating: imdbRating,
				})
				return err
			})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"movie":       toMovieView(result.Movie),
					"suggestions": len(result.Suggestions),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added movie %d: %s (%d), %d suggestions pending\n",
				result.Movie.ID, result.Movie.Title, result.Movie.Year, len(result.Suggestions))
			return nil
		},
	}

	cmd.Flags().Int64Var(&tmdbID, "tmdb-id", 0, "TMDB movie id")
	cmd.Flags().Int64SliceVar(&profileIDs, "profile", nil, "Profile id to curate the movie for (repeatable)")
	cmd.Flags().Float64Var(&imdbRating, "imdb-rating", 0, "IMDb rating; 0 keeps the stored value")
	return cmd
}

func newMovieListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog movies",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			movies, err := st.Movies(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				views := make([]movieView, 0, len(movies))
				for _, m := range movies {
					views = append(views, toMovieView(m))
				}
				return writeJSON(cmd, views)
			}
			if len(movies) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No movies in the catalog")
				return nil
			}
			rows := make([][]string, 0, len(movies))
			for _, m := range movies {
				rows = append(rows, []string{
					strconv.FormatInt(m.ID, 10),
					strconv.FormatInt(m.TMDBID, 10),
					m.Title,
					yearText(m.Year),
					formatRating(m.BestRating()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{numCol("ID"), numCol("TMDB"), col("Title"), numCol("Year"), numCol("Rating")}, rows))
			return nil
		},
	}
}

func newMovieShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <movie-id>",
		Short: "Show a movie's associations and suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "movie")
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			movie, err := st.Movie(cmd.Context(), id)
			if err != nil {
				return err
			}
			if movie == nil {
				return services.Wrap(services.ErrNotFound, "cli", "movie show", fmt.Sprintf("movie %d", id), nil)
			}
			assocs, err := st.MovieAssociations(cmd.Context(), id)
			if err != nil {
				return err
			}
			suggestions, err := listMovieSuggestions(cmd, ctx, id)
			if err != nil {
				return err
			}

			assocViews := make([]associationView, 0, len(assocs))
			for _, a := range assocs {
				assocViews = append(assocViews, associationView{
					MainSentimentID: a.MainSentimentID,
					SubSentimentID:  a.SubSentimentID,
					SubSentiment:    a.SubSentiment,
					Relevance:       a.Relevance,
					Explanation:     a.Explanation,
				})
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"movie":        toMovieView(*movie),
					"associations": assocViews,
					"suggestions":  suggestions,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) tmdb=%d rating=%s\n", movie.Title, yearText(movie.Year), movie.TMDBID, formatRating(movie.BestRating()))
			if len(movie.Genres) > 0 {
				fmt.Fprintf(out, "Genres: %s\n", strings.Join(movie.Genres, ", "))
			}
			if len(assocViews) > 0 {
				rows := make([][]string, 0, len(assocViews))
				for _, a := range assocViews {
					rows = append(rows, []string{
						strconv.FormatInt(a.MainSentimentID, 10),
						a.SubSentiment,
						strconv.FormatFloat(a.Relevance, 'f', 2, 64),
						a.Explanation,
					})
				}
				fmt.Fprintln(out, renderTable([]column{numCol("Lens"), col("Concept"), numCol("Relevance"), col("Explanation")}, rows))
			}
			if len(suggestions) > 0 {
				rows := make([][]string, 0, len(suggestions))
				for _, s := range suggestions {
					rows = append(rows, []string{
						strconv.FormatInt(s.ProfileID, 10),
						formatScore(s.Score),
						formatRank(s.Rank),
						s.Reason,
					})
				}
				fmt.Fprintln(out, renderTable([]column{numCol("Profile"), numCol("Score"), numCol("Rank"), col("Reason")}, rows))
			}
			return nil
		},
	}
}

func listMovieSuggestions(cmd *cobra.Command, ctx *commandContext, movieID int64) ([]suggestionView, error) {
	st, err := ctx.openStore()
	if err != nil {
		return nil, err
	}
	rows, err := st.ListSuggestions(cmd.Context(), store.SuggestionFilter{MovieID: movieID})
	if err != nil {
		return nil, err
	}
	views := make([]suggestionView, 0, len(rows))
	for _, sg := range rows {
		views = append(views, suggestionView{
			ProfileID: sg.ProfileID,
			Score:     sg.RelevanceScore,
			Rank:      sg.Rank,
			Reason:    sg.Reason,
		})
	}
	return views, nil
}
