package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"moodreel/internal/canonical"
	"moodreel/internal/config"
	"moodreel/internal/logging"
	"moodreel/internal/maintenance"
	"moodreel/internal/scoring"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/suggest"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	scoreCmd := &cobra.Command{
		Use:   "score",
		Short: "Relevance score maintenance",
	}
	scoreCmd.AddCommand(newScoreRecomputeCommand(ctx))
	return scoreCmd
}

func newScoreRecomputeCommand(ctx *commandContext) *cobra.Command {
	var (
		profileID int64
		movieID   int64
		below     float64
		dryRun    bool
		noReasons bool
		sflags    suggesterFlags
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute stored relevance scores from associations and profile DNA",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			opts := []scoring.RecomputerOption{scoring.WithThreshold(cfg.Curation.CurationThreshold)}
			if !noReasons && !dryRun {
				fn, err := recomputeReasons(cfg, st, sflags, logger)
				if err != nil {
					return err
				}
				if fn != nil {
					opts = append(opts, scoring.WithReasons(fn))
				}
			}
			recomputer := scoring.NewRecomputer(st, canonical.NewService(st, logger), logger, opts...)

			req := scoring.Request{
				MovieID:   movieID,
				ProfileID: profileID,
				Below:     optionalFloat(cmd.Flags().Changed("below"), below),
				DryRun:    dryRun,
			}
			var summary scoring.Summary
			err = ctx.withLock(cmd.Context(), maintenance.Shared, func() error {
				summary, err = recomputer.Recompute(cmd.Context(), req)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, summary)
			}
			renderRecomputeSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().Int64Var(&profileID, "profile", 0, "Restrict to one profile id")
	cmd.Flags().Int64Var(&movieID, "movie", 0, "Restrict to one movie id")
	cmd.Flags().Float64Var(&below, "below", 0, "Only suggestions unscored or scored below this value")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report without writing")
	cmd.Flags().BoolVar(&noReasons, "no-reasons", false, "Skip narrative reasons for high scores")
	cmd.Flags().StringVar(&sflags.replayDir, "replay", "", "Replay reasons from this directory instead of calling the LLM")
	return cmd
}

// recomputeReasons returns nil when no reason source is configured.
func recomputeReasons(cfg *config.Config, st *store.Store, flags suggesterFlags, logger *slog.Logger) (scoring.ReasonFunc, error) {
	if flags.replayDir == "" && cfg.RequireLLM() != nil {
		logger.Warn("llm not configured; reasons will not be written",
			logging.Args(logging.DecisionAttrs("score_reasons", "skip", "llm not configured")...)...)
		return nil, nil
	}
	sugg, err := buildSuggester(cfg, flags)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, movieID, profileID int64, result scoring.Result) (string, error) {
		movie, err := st.Movie(ctx, movieID)
		if err != nil {
			return "", err
		}
		profile, err := st.Profile(ctx, profileID)
		if err != nil {
			return "", err
		}
		if movie == nil || profile == nil {
			return "", services.Wrap(services.ErrNotFound, "score", "reason",
				fmt.Sprintf("movie %d profile %d", movieID, profileID), nil)
		}
		return sugg.Reason(ctx, suggest.ReasonRequest{
			Movie:   *movie,
			Profile: *profile,
			Score:   result.Score,
			Matched: result.Matched,
		})
	}, nil
}

func renderRecomputeSummary(cmd *cobra.Command, summary scoring.Summary) {
	out := cmd.OutOrStdout()
	if summary.Evaluated == 0 {
		fmt.Fprintln(out, "No suggestions matched")
		return
	}
	rows := make([][]string, 0, len(summary.Changes))
	for _, change := range summary.Changes {
		rows = append(rows, []string{
			strconv.FormatInt(change.MovieID, 10),
			strconv.FormatInt(change.ProfileID, 10),
			formatScore(change.Previous),
			strconv.FormatFloat(change.Result.Score, 'f', 3, 64),
			fmt.Sprintf("%d/%d", change.Result.MatchCount, change.Result.TotalExpected),
			yesNo(change.ReasonStored),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]column{
			numCol("Movie"), numCol("Profile"), numCol("Previous"), numCol("Score"), numCol("Matched"), col("Reason"),
		}, rows))
	}
	prefix := ""
	if summary.DryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintf(out, "%sEvaluated %d, changed %d, reasons %d (%d failed), movies ranked %d\n",
		prefix, summary.Evaluated, summary.Changed, summary.ReasonsWritten, summary.ReasonFailures, summary.MoviesRanked)
}
