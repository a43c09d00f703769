package curation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moodreel/internal/config"
	"moodreel/internal/logging"
	"moodreel/internal/metrics"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/taxonomy"
	"moodreel/internal/tmdb"
)

// IntakeRequest adds one movie to the catalog for the listed profiles.
type IntakeRequest struct {
	TMDBID     int64
	ProfileIDs []int64
	IMDBRating float64
}

// IntakeResult is the stored movie and its suggestion rows.
type IntakeResult struct {
	Movie       taxonomy.Movie
	Suggestions []taxonomy.Suggestion
}

// Intake fetches movie attributes and opens pending suggestions.
type Intake struct {
	store   *store.Store
	fetcher tmdb.Fetcher
	logger  *slog.Logger
}

// NewIntake wraps fetcher in a circuit breaker.
func NewIntake(cfg *config.Config, st *store.Store, fetcher tmdb.Fetcher, logger *slog.Logger, rec *metrics.Recorder) *Intake {
	logger = logging.NewComponentLogger(logger, "intake")
	return &Intake{
		store:   st,
		fetcher: newGuardedFetcher(fetcher, breakerSettings(cfg), rec, logger),
		logger:  logger,
	}
}

// Add fetches req.TMDBID, upserts the movie and ensures a suggestion row per
// profile. Existing scores are left untouched.
func (in *Intake) Add(ctx context.Context, req IntakeRequest) (IntakeResult, error) {
	profiles := make([]taxonomy.Profile, 0, len(req.ProfileIDs))
	for _, id := range req.ProfileIDs {
		profile, err := in.store.Profile(ctx, id)
		if err != nil {
			return IntakeResult{}, err
		}
		if profile == nil {
			return IntakeResult{}, services.Wrap(services.ErrNotFound, "intake", "profile", fmt.Sprintf("profile %d", id), nil)
		}
		profiles = append(profiles, *profile)
	}

	details, err := in.fetcher.GetMovie(ctx, req.TMDBID)
	if err != nil {
		var status *tmdb.StatusError
		if errors.As(err, &status) && status.NotFound() {
			return IntakeResult{}, services.Wrap(services.ErrNotFound, "intake", "tmdb", fmt.Sprintf("tmdb id %d", req.TMDBID), err)
		}
		return IntakeResult{}, services.Wrap(services.ErrExternalService, "intake", "tmdb", fmt.Sprintf("tmdb id %d", req.TMDBID), err)
	}

	movie := details.Movie()
	movie.IMDBRating = req.IMDBRating
	if existing, err := in.store.MovieByTMDBID(ctx, req.TMDBID); err != nil {
		return IntakeResult{}, err
	} else if existing != nil && req.IMDBRating == 0 {
		movie.IMDBRating = existing.IMDBRating
	}
	stored, err := in.store.UpsertMovie(ctx, movie)
	if err != nil {
		return IntakeResult{}, err
	}

	result := IntakeResult{Movie: stored}
	for _, profile := range profiles {
		sg, err := in.store.EnsureSuggestion(ctx, stored.ID, profile.ID)
		if err != nil {
			return result, err
		}
		result.Suggestions = append(result.Suggestions, sg)
	}
	logging.WithContext(ctx, in.logger).Info("movie added",
		logging.Int64(logging.FieldMovieID, stored.ID),
		logging.Int64("tmdb_id", stored.TMDBID),
		logging.String("title", stored.Title),
		logging.Int("profiles", len(profiles)),
	)
	return result, nil
}
