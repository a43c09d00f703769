package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"moodreel/internal/logging"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/taxonomy"
)

// Store is the persistence the recomputer reads and writes.
type Store interface {
	ProfileDNA(ctx context.Context, profileID int64) ([]taxonomy.DNARow, error)
	MovieAssociations(ctx context.Context, movieID int64) ([]taxonomy.Association, error)
	ListSuggestions(ctx context.Context, filter store.SuggestionFilter) ([]taxonomy.Suggestion, error)
	SetSuggestionScore(ctx context.Context, movieID, profileID int64, score float64) error
	SetSuggestionReason(ctx context.Context, movieID, profileID int64, reason string) error
	SetSuggestionRanks(ctx context.Context, movieID int64, ranks map[int64]int) error
}

// Gate blocks recompute against an unverified taxonomy.
type Gate interface {
	EnsureVerified(ctx context.Context, profileID int64) error
}

// ReasonFunc supplies the narrative reason for a score at or above the
// curation threshold.
type ReasonFunc func(ctx context.Context, movieID, profileID int64, result Result) (string, error)

// Request selects the suggestions to recompute. Zero values match everything.
type Request struct {
	MovieID   int64
	ProfileID int64
	Below     *float64
	DryRun    bool
}

// Change describes one recomputed suggestion.
type Change struct {
	MovieID      int64
	ProfileID    int64
	Previous     *float64
	Result       Result
	ReasonStored bool
}

// Summary reports what a recompute did.
type Summary struct {
	Evaluated      int
	Changed        int
	ReasonsWritten int
	ReasonFailures int
	MoviesRanked   int
	DryRun         bool
	Changes        []Change
}

// RecomputerOption customizes a Recomputer.
type RecomputerOption func(*Recomputer)

// WithThreshold sets the curation threshold for persisting reasons.
func WithThreshold(threshold float64) RecomputerOption {
	return func(r *Recomputer) {
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}

// WithReasons sets the narrative reason source.
func WithReasons(fn ReasonFunc) RecomputerOption {
	return func(r *Recomputer) {
		r.reasons = fn
	}
}

// Recomputer replaces stored suggestion scores with freshly computed ones.
type Recomputer struct {
	store     Store
	gate      Gate
	reasons   ReasonFunc
	threshold float64
	logger    *slog.Logger
}

// NewRecomputer constructs a Recomputer. A nil gate disables the
// verification check.
func NewRecomputer(st Store, gate Gate, logger *slog.Logger, opts ...RecomputerOption) *Recomputer {
	r := &Recomputer{
		store:     st,
		gate:      gate,
		threshold: DefaultCurationThreshold,
		logger:    logging.NewComponentLogger(logger, "scoring"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recompute scores every suggestion matching req and re-ranks the touched
// movies. It must run after the association writes it depends on commit.
func (r *Recomputer) Recompute(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{DryRun: req.DryRun}
	suggestions, err := r.store.ListSuggestions(ctx, store.SuggestionFilter{
		MovieID:   req.MovieID,
		ProfileID: req.ProfileID,
		Below:     req.Below,
	})
	if err != nil {
		return summary, services.Wrap(services.ErrTransient, "scoring", "list suggestions", "", err)
	}

	var (
		verified = make(map[int64]bool)
		dnaCache = make(map[int64][]taxonomy.DNARow)
		assocs   = make(map[int64][]taxonomy.Association)
		touched  []int64
		seen     = make(map[int64]bool)
	)
	for _, sg := range suggestions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !verified[sg.ProfileID] {
			if r.gate != nil {
				if err := r.gate.EnsureVerified(ctx, sg.ProfileID); err != nil {
					return summary, err
				}
			}
			verified[sg.ProfileID] = true
		}

		dna, ok := dnaCache[sg.ProfileID]
		if !ok {
			dna, err = r.store.ProfileDNA(ctx, sg.ProfileID)
			if err != nil {
				return summary, services.Wrap(services.ErrTransient, "scoring", "load dna", fmt.Sprintf("profile %d", sg.ProfileID), err)
			}
			dnaCache[sg.ProfileID] = dna
		}
		movieAssocs, ok := assocs[sg.MovieID]
		if !ok {
			movieAssocs, err = r.store.MovieAssociations(ctx, sg.MovieID)
			if err != nil {
				return summary, services.Wrap(services.ErrTransient, "scoring", "load associations", fmt.Sprintf("movie %d", sg.MovieID), err)
			}
			assocs[sg.MovieID] = movieAssocs
		}

		ch, err := r.apply(ctx, sg, Score(dna, movieAssocs), req.DryRun, &summary)
		if err != nil {
			return summary, err
		}
		summary.Evaluated++
		if ch.Previous == nil || *ch.Previous != ch.Result.Score {
			summary.Changed++
		}
		summary.Changes = append(summary.Changes, ch)
		if !seen[sg.MovieID] {
			seen[sg.MovieID] = true
			touched = append(touched, sg.MovieID)
		}
	}

	if req.DryRun {
		return summary, nil
	}
	for _, movieID := range touched {
		if err := r.rerank(ctx, movieID); err != nil {
			return summary, err
		}
		summary.MoviesRanked++
	}
	return summary, nil
}

func (r *Recomputer) apply(ctx context.Context, sg taxonomy.Suggestion, result Result, dryRun bool, summary *Summary) (Change, error) {
	ch := Change{MovieID: sg.MovieID, ProfileID: sg.ProfileID, Previous: sg.RelevanceScore, Result: result}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.Int64(logging.FieldMovieID, sg.MovieID),
		logging.Int64(logging.FieldProfileID, sg.ProfileID),
	)
	if dryRun {
		logger.Debug("score computed (dry run)", logging.Float64("score", result.Score))
		return ch, nil
	}
	if err := r.store.SetSuggestionScore(ctx, sg.MovieID, sg.ProfileID, result.Score); err != nil {
		return ch, services.Wrap(services.ErrTransient, "scoring", "persist score", "", err)
	}
	if result.Score < r.threshold || r.reasons == nil {
		logger.Debug("score persisted", logging.Float64("score", result.Score), logging.String("terminal", string(result.Terminal)))
		return ch, nil
	}

	reason, err := r.reasons(ctx, sg.MovieID, sg.ProfileID, result)
	if err != nil || reason == "" {
		summary.ReasonFailures++
		logger.Warn("reason unavailable; keeping previous reason",
			logging.Float64("score", result.Score),
			logging.Error(err),
			logging.String(logging.FieldDecisionType, "reason"),
			logging.String(logging.FieldDecisionResult, "skipped"),
		)
		return ch, nil
	}
	if err := r.store.SetSuggestionReason(ctx, sg.MovieID, sg.ProfileID, reason); err != nil {
		return ch, services.Wrap(services.ErrTransient, "scoring", "persist reason", "", err)
	}
	ch.ReasonStored = true
	summary.ReasonsWritten++
	logger.Info("score crossed curation threshold",
		logging.Float64("score", result.Score),
		logging.Float64("threshold", r.threshold),
	)
	return ch, nil
}

func (r *Recomputer) rerank(ctx context.Context, movieID int64) error {
	all, err := r.store.ListSuggestions(ctx, store.SuggestionFilter{MovieID: movieID})
	if err != nil {
		return services.Wrap(services.ErrTransient, "scoring", "list movie suggestions", "", err)
	}
	if err := r.store.SetSuggestionRanks(ctx, movieID, Rank(all)); err != nil {
		return services.Wrap(services.ErrTransient, "scoring", "persist ranks", "", err)
	}
	return nil
}
