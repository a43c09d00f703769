package logging

import (
	"context"
	"log/slog"

	"moodreel/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized key for batch run correlation identifiers.
	FieldRunID = "run_id"
	// FieldMovieID is the standardized key for movie identifiers.
	FieldMovieID = "movie_id"
	// FieldProfileID is the standardized key for journey profile identifiers.
	FieldProfileID = "profile_id"
	// FieldStage is the standardized key for batch stage names.
	FieldStage = "stage"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldDecisionType names the kind of decision being logged (match, merge, survivor).
	FieldDecisionType = "decision_type"
	// FieldDecisionResult is the outcome of a logged decision.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason explains a logged decision.
	FieldDecisionReason = "decision_reason"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	if id, ok := services.MovieIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldMovieID, id))
	}
	if id, ok := services.ProfileIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldProfileID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
