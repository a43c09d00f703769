package association

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"moodreel/internal/logging"
	"moodreel/internal/services"
	"moodreel/internal/taxonomy"
	"moodreel/internal/validation"
)

// Store applies merge to the row keyed by incoming inside one transaction.
type Store interface {
	MergeAssociation(ctx context.Context, incoming taxonomy.Association, merge MergeFunc) (taxonomy.Association, Outcome, error)
}

// Input is one resolved measurement to persist.
type Input struct {
	MovieID         int64                 `json:"movie_id" validate:"gt=0"`
	MainSentimentID int64                 `json:"main_sentiment_id" validate:"gt=0"`
	SubSentiment    taxonomy.SubSentiment `json:"sub_sentiment" validate:"-"`
	Relevance       float64               `json:"relevance" validate:"gte=0,lte=1"`
	Explanation     string                `json:"explanation" validate:"notblank"`
}

// Result is the stored row after a write.
type Result struct {
	Outcome     Outcome
	Association taxonomy.Association
}

// Writer persists associations through the merge rule.
type Writer struct {
	store  Store
	merge  MergeFunc
	logger *slog.Logger
}

// NewWriter constructs a Writer backed by store.
func NewWriter(store Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{store: store, merge: Merge, logger: logger}
}

// Write validates in and merges it into storage. Invalid input and scope
// mismatches return an ErrValidation error so callers can skip the tuple.
func (w *Writer) Write(ctx context.Context, in Input) (Result, error) {
	if err := validation.Struct(in); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "association", "validate", "rejected input", err)
	}
	if in.SubSentiment.ID <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "association", "validate", "sub sentiment unresolved", nil)
	}
	if in.SubSentiment.MainSentimentID != in.MainSentimentID {
		return Result{}, services.Wrap(services.ErrValidation, "association", "validate",
			fmt.Sprintf("sub sentiment %d belongs to main sentiment %d, not %d",
				in.SubSentiment.ID, in.SubSentiment.MainSentimentID, in.MainSentimentID), nil)
	}

	incoming := taxonomy.Association{
		MovieID:         in.MovieID,
		MainSentimentID: in.MainSentimentID,
		SubSentimentID:  in.SubSentiment.ID,
		SubSentiment:    in.SubSentiment.Name,
		Relevance:       in.Relevance,
		Explanation:     strings.TrimSpace(in.Explanation),
	}
	stored, outcome, err := w.store.MergeAssociation(ctx, incoming, w.merge)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "association", "merge", "store write failed", err)
	}

	logging.WithContext(ctx, w.logger).Debug("association merged",
		logging.Int64(logging.FieldMovieID, in.MovieID),
		logging.Int64("sub_sentiment_id", in.SubSentiment.ID),
		logging.String(logging.FieldDecisionType, "association_merge"),
		logging.String(logging.FieldDecisionResult, string(outcome)),
		logging.Float64("relevance", stored.Relevance),
	)
	return Result{Outcome: outcome, Association: stored}, nil
}
