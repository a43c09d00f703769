package store

import (
	"context"
	"fmt"
)

// HealthReport summarizes database health.
type HealthReport struct {
	SchemaVersion  int
	ExpectedSchema int
	IntegrityCheck string
	ForeignKeys    bool
	PendingReview  int
}

// Healthy reports whether the database needs no attention.
func (h HealthReport) Healthy() bool {
	return h.SchemaVersion == h.ExpectedSchema && h.IntegrityCheck == "ok" && h.ForeignKeys
}

// CheckHealth verifies schema version, integrity and foreign key enforcement.
func (s *Store) CheckHealth(ctx context.Context) (HealthReport, error) {
	report := HealthReport{ExpectedSchema: schemaVersion}
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&report.SchemaVersion); err != nil {
		return report, fmt.Errorf("read schema version: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&report.IntegrityCheck); err != nil {
		return report, fmt.Errorf("integrity check: %w", err)
	}
	var fk int
	if err := s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		return report, fmt.Errorf("foreign keys pragma: %w", err)
	}
	report.ForeignKeys = fk == 1
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM concept_proposals WHERE status = 'pending'",
	).Scan(&report.PendingReview); err != nil {
		return report, fmt.Errorf("count pending proposals: %w", err)
	}
	return report, nil
}
