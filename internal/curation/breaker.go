package curation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"moodreel/internal/logging"
	"moodreel/internal/metrics"
	"moodreel/internal/services"
	"moodreel/internal/suggest"
	"moodreel/internal/tmdb"
)

// BreakerSettings configures the collaborator circuit breakers.
type BreakerSettings struct {
	Failures int
	Cooldown time.Duration
}

func newBreaker[T any](name string, settings BreakerSettings, rec *metrics.Recorder, logger *slog.Logger) *gobreaker.CircuitBreaker[T] {
	failures := uint32(max(settings.Failures, 1))
	cooldown := settings.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	rec.BreakerState(name, int(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
			rec.BreakerState(name, int(to))
		},
		// A reply that fails validation, a missing recording or an unknown
		// movie still means the collaborator answered.
		IsSuccessful: func(err error) bool {
			var status *tmdb.StatusError
			if errors.As(err, &status) && status.NotFound() {
				return true
			}
			return err == nil ||
				errors.Is(err, services.ErrValidation) ||
				errors.Is(err, services.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// breakerOpen reports whether err is a breaker rejection.
func breakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type guardedSuggester struct {
	next    suggest.Suggester
	matches *gobreaker.CircuitBreaker[suggest.Response]
	reasons *gobreaker.CircuitBreaker[string]
}

func newGuardedSuggester(next suggest.Suggester, settings BreakerSettings, rec *metrics.Recorder, logger *slog.Logger) *guardedSuggester {
	return &guardedSuggester{
		next:    next,
		matches: newBreaker[suggest.Response]("llm", settings, rec, logger),
		reasons: newBreaker[string]("llm_reason", settings, rec, logger),
	}
}

func (g *guardedSuggester) Suggest(ctx context.Context, req suggest.Request) (suggest.Response, error) {
	return g.matches.Execute(func() (suggest.Response, error) {
		return g.next.Suggest(ctx, req)
	})
}

func (g *guardedSuggester) Reason(ctx context.Context, req suggest.ReasonRequest) (string, error) {
	return g.reasons.Execute(func() (string, error) {
		return g.next.Reason(ctx, req)
	})
}

type guardedFetcher struct {
	next tmdb.Fetcher
	cb   *gobreaker.CircuitBreaker[*tmdb.Details]
}

func newGuardedFetcher(next tmdb.Fetcher, settings BreakerSettings, rec *metrics.Recorder, logger *slog.Logger) *guardedFetcher {
	return &guardedFetcher{next: next, cb: newBreaker[*tmdb.Details]("tmdb", settings, rec, logger)}
}

func (g *guardedFetcher) GetMovie(ctx context.Context, tmdbID int64) (*tmdb.Details, error) {
	return g.cb.Execute(func() (*tmdb.Details, error) {
		return g.next.GetMovie(ctx, tmdbID)
	})
}
