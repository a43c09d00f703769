package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moodreel/internal/association"
	"moodreel/internal/taxonomy"
)

// collisionResolver clears rows at duplicateID whose scope already has a row
// at survivorID, so the following re-point cannot violate a unique key.
type collisionResolver func(ctx context.Context, tx *sql.Tx, dep dependent, survivorID, duplicateID int64, merge association.MergeFunc, now string) (int, error)

// dependent is a table holding a reference to sub_sentiments.id. Scope names
// the columns that, together with the reference, form a unique key.
type dependent struct {
	table   string
	column  string
	scope   []string
	resolve collisionResolver
}

// subSentimentDependents lists every table re-pointed before a duplicate
// SubSentiment is deleted, in the order they are processed. A new
// referencing table needs exactly one entry here.
var subSentimentDependents = []dependent{
	{table: "movie_sentiments", column: "sub_sentiment_id", scope: []string{"movie_id", "main_sentiment_id"}, resolve: mergeAssociationCollisions},
	{table: "profile_dna", column: "sub_sentiment_id", scope: []string{"profile_id"}, resolve: dropCollisions},
	{table: "concept_proposals", column: "sub_sentiment_id"},
}

// SubSentimentDependents returns the re-pointed tables in processing order.
func SubSentimentDependents() []string {
	out := make([]string, 0, len(subSentimentDependents))
	for _, dep := range subSentimentDependents {
		out = append(out, dep.table)
	}
	return out
}

func scopeMatch(dep dependent, outer, inner string) string {
	parts := make([]string, 0, len(dep.scope))
	for _, col := range dep.scope {
		parts = append(parts, fmt.Sprintf("%s.%s = %s.%s", inner, col, outer, col))
	}
	return strings.Join(parts, " AND ")
}

func dropCollisions(ctx context.Context, tx *sql.Tx, dep dependent, survivorID, duplicateID int64, _ association.MergeFunc, _ string) (int, error) {
	query := fmt.Sprintf(
		`DELETE FROM %[1]s WHERE %[2]s = ? AND EXISTS (SELECT 1 FROM %[1]s AS kept WHERE kept.%[2]s = ? AND %[3]s)`,
		dep.table, dep.column, scopeMatch(dep, dep.table, "kept"),
	)
	res, err := tx.ExecContext(ctx, query, duplicateID, survivorID)
	if err != nil {
		return 0, fmt.Errorf("drop %s collisions: %w", dep.table, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type associationCollision struct {
	duplicate taxonomy.Association
	survivor  taxonomy.Association
}

// mergeAssociationCollisions folds a duplicate's association into the
// survivor's row for the same movie through the merge rule, then removes it.
func mergeAssociationCollisions(ctx context.Context, tx *sql.Tx, _ dependent, survivorID, duplicateID int64, merge association.MergeFunc, now string) (int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT dup.id, dup.movie_id, dup.main_sentiment_id, dup.relevance, dup.explanation,
		        kept.id, kept.relevance, kept.explanation
		 FROM movie_sentiments dup
		 JOIN movie_sentiments kept
		   ON kept.movie_id = dup.movie_id AND kept.main_sentiment_id = dup.main_sentiment_id AND kept.sub_sentiment_id = ?
		 WHERE dup.sub_sentiment_id = ?
		 ORDER BY dup.id`, survivorID, duplicateID)
	if err != nil {
		return 0, fmt.Errorf("find association collisions: %w", err)
	}
	var collisions []associationCollision
	for rows.Next() {
		var c associationCollision
		if err := rows.Scan(&c.duplicate.ID, &c.duplicate.MovieID, &c.duplicate.MainSentimentID,
			&c.duplicate.Relevance, &c.duplicate.Explanation,
			&c.survivor.ID, &c.survivor.Relevance, &c.survivor.Explanation); err != nil {
			_ = rows.Close()
			return 0, err
		}
		c.survivor.MovieID = c.duplicate.MovieID
		c.survivor.MainSentimentID = c.duplicate.MainSentimentID
		c.survivor.SubSentimentID = survivorID
		c.duplicate.SubSentimentID = survivorID
		collisions = append(collisions, c)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, c := range collisions {
		merged, outcome := merge(&c.survivor, c.duplicate)
		if _, err := writeAssociationTx(ctx, tx, merged, outcome, now); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM movie_sentiments WHERE id = ?`, c.duplicate.ID); err != nil {
			return 0, fmt.Errorf("delete merged association: %w", err)
		}
	}
	return len(collisions), nil
}

// ApplyTaxonomyMerge collapses each group into its survivor in one
// transaction. Every dependent table is re-pointed for every group before any
// SubSentiment row is deleted. Re-running on a clean taxonomy is a no-op.
func (s *Store) ApplyTaxonomyMerge(ctx context.Context, groups []taxonomy.MergeGroup, merge association.MergeFunc) (taxonomy.MergeStats, error) {
	if merge == nil {
		merge = association.Merge
	}
	var stats taxonomy.MergeStats
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stats = taxonomy.MergeStats{Repointed: make(map[string]int), Resolved: make(map[string]int)}
		now := s.timestamp()

		for _, dep := range subSentimentDependents {
			update := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`, dep.table, dep.column, dep.column)
			for _, group := range groups {
				for _, dupID := range group.DuplicateIDs {
					if dep.resolve != nil {
						n, err := dep.resolve(ctx, tx, dep, group.SurvivorID, dupID, merge, now)
						if err != nil {
							return err
						}
						stats.Resolved[dep.table] += n
					}
					res, err := tx.ExecContext(ctx, update, group.SurvivorID, dupID)
					if err != nil {
						return fmt.Errorf("repoint %s: %w", dep.table, err)
					}
					n, _ := res.RowsAffected()
					stats.Repointed[dep.table] += int(n)
				}
			}
		}

		for _, group := range groups {
			if len(group.DuplicateIDs) == 0 {
				continue
			}
			res, err := tx.ExecContext(ctx,
				`DELETE FROM sub_sentiments WHERE id IN (`+makePlaceholders(len(group.DuplicateIDs))+`)`,
				int64Args(group.DuplicateIDs)...)
			if err != nil {
				return fmt.Errorf("delete duplicate sub sentiments: %w", err)
			}
			n, _ := res.RowsAffected()
			stats.DeletedSubSentiments += int(n)
		}
		return nil
	})
	if err != nil {
		return taxonomy.MergeStats{}, err
	}
	return stats, nil
}

// DuplicateTaxonomyGroups counts (name, owner) groups holding more than one SubSentiment.
func (s *Store) DuplicateTaxonomyGroups(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM (
		   SELECT name, main_sentiment_id FROM sub_sentiments
		   GROUP BY name, main_sentiment_id HAVING COUNT(1) > 1
		 )`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count duplicate taxonomy groups: %w", err)
	}
	return count, nil
}

// DuplicateProfileGroups counts concept names referenced by more than one DNA row of profileID.
func (s *Store) DuplicateProfileGroups(ctx context.Context, profileID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM (
		   SELECT s.name FROM profile_dna d JOIN sub_sentiments s ON s.id = d.sub_sentiment_id
		   WHERE d.profile_id = ?
		   GROUP BY s.name HAVING COUNT(1) > 1
		 )`, profileID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count duplicate profile groups: %w", err)
	}
	return count, nil
}

// DanglingReferences counts dependent rows, per table, still referencing any of ids.
func (s *Store) DanglingReferences(ctx context.Context, ids []int64) (map[string]int, error) {
	out := make(map[string]int, len(subSentimentDependents))
	if len(ids) == 0 {
		return out, nil
	}
	for _, dep := range subSentimentDependents {
		var count int
		query := fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE %s IN (%s)`, dep.table, dep.column, makePlaceholders(len(ids)))
		if err := s.db.QueryRowContext(ctx, query, int64Args(ids)...).Scan(&count); err != nil {
			return nil, fmt.Errorf("count dangling %s: %w", dep.table, err)
		}
		if count > 0 {
			out[dep.table] = count
		}
	}
	return out, nil
}

// TableCounts reports row counts of the tables canonicalization touches.
func (s *Store) TableCounts(ctx context.Context) (taxonomy.TableCounts, error) {
	var counts taxonomy.TableCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM sub_sentiments),
		        (SELECT COUNT(1) FROM movie_sentiments),
		        (SELECT COUNT(1) FROM profile_dna)`,
	).Scan(&counts.SubSentiments, &counts.Associations, &counts.ProfileDNA)
	if err != nil {
		return taxonomy.TableCounts{}, fmt.Errorf("table counts: %w", err)
	}
	return counts, nil
}

// RecordCanonicalRun appends a canonicalization attempt to the run log.
func (s *Store) RecordCanonicalRun(ctx context.Context, run taxonomy.CanonicalRun) (taxonomy.CanonicalRun, error) {
	started := run.StartedAt
	if started.IsZero() {
		started = s.now()
	}
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = s.now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO canonical_runs (run_id, pass, profile_id, dry_run, status, planned_deletions, detail, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, string(run.Pass), nullableInt64(run.ProfileID), run.DryRun, string(run.Status),
		run.PlannedDeletions, run.Detail, formatTime(started), formatTime(finished),
	)
	if err != nil {
		return taxonomy.CanonicalRun{}, fmt.Errorf("record canonical run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return taxonomy.CanonicalRun{}, fmt.Errorf("canonical run id: %w", err)
	}
	run.ID = id
	run.StartedAt = started.UTC()
	run.FinishedAt = finished.UTC()
	return run, nil
}

// LatestCanonicalRun returns the newest non-dry run of pass, or nil. A nil
// profileID selects runs without a profile scope.
func (s *Store) LatestCanonicalRun(ctx context.Context, pass taxonomy.CanonicalPass, profileID *int64) (*taxonomy.CanonicalRun, error) {
	query := `SELECT id, run_id, pass, profile_id, dry_run, status, planned_deletions, detail, started_at, finished_at
	          FROM canonical_runs WHERE pass = ? AND dry_run = 0`
	args := []any{string(pass)}
	if profileID == nil {
		query += ` AND profile_id IS NULL`
	} else {
		query += ` AND profile_id = ?`
		args = append(args, *profileID)
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var (
		run      taxonomy.CanonicalRun
		passName string
		status   string
		profile  sql.NullInt64
		started  sql.NullString
		finished sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.RunID, &passName, &profile, &run.DryRun,
		&status, &run.PlannedDeletions, &run.Detail, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load canonical run: %w", err)
	}
	run.Pass = taxonomy.CanonicalPass(passName)
	run.Status = taxonomy.RunStatus(status)
	run.ProfileID = int64Ptr(profile)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return &run, nil
}
