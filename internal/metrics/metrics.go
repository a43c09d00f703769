package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "moodreel"

// Recorder holds the run-scoped collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	matcherOutcomes    *prometheus.CounterVec
	associationWrites  *prometheus.CounterVec
	droppedTuples      *prometheus.CounterVec
	canonicalDeletions *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	lastRunDuration    *prometheus.GaugeVec
	lastRunTimestamp   *prometheus.GaugeVec
}

// New builds a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		matcherOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matcher_outcomes_total",
			Help:      "Concept matcher outcomes by kind and pass",
		}, []string{"kind", "pass"}),
		associationWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "association_writes_total",
			Help:      "Association writes by merge outcome",
		}, []string{"outcome"}),
		droppedTuples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_tuples_total",
			Help:      "Candidate tuples discarded before matching, by reason",
		}, []string{"reason"}),
		canonicalDeletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canonical_deletions_total",
			Help:      "Rows removed by canonicalization, by pass",
		}, []string{"pass"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per collaborator (0 closed, 1 half-open, 2 open)",
		}, []string{"collaborator"}),
		lastRunDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run per command",
		}, []string{"command"}),
		lastRunTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run per command finished",
		}, []string{"command"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) MatcherOutcome(kind, pass string) {
	if r == nil {
		return
	}
	if pass == "" {
		pass = "none"
	}
	r.matcherOutcomes.WithLabelValues(kind, pass).Inc()
}

func (r *Recorder) AssociationWrite(outcome string) {
	if r == nil {
		return
	}
	r.associationWrites.WithLabelValues(outcome).Inc()
}

func (r *Recorder) DroppedTuple(reason string) {
	if r == nil {
		return
	}
	r.droppedTuples.WithLabelValues(reason).Inc()
}

func (r *Recorder) CanonicalDeletions(pass string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.canonicalDeletions.WithLabelValues(pass).Add(float64(n))
}

// BreakerState records a gobreaker state as its numeric value.
func (r *Recorder) BreakerState(collaborator string, state int) {
	if r == nil {
		return
	}
	r.breakerState.WithLabelValues(collaborator).Set(float64(state))
}

// RunFinished records the duration and completion time of a command.
func (r *Recorder) RunFinished(command string, started time.Time, finished time.Time) {
	if r == nil {
		return
	}
	r.lastRunDuration.WithLabelValues(command).Set(finished.Sub(started).Seconds())
	r.lastRunTimestamp.WithLabelValues(command).Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in text exposition format. An empty path
// disables export.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
