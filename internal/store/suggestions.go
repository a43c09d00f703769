package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moodreel/internal/taxonomy"
)

const suggestionColumns = "id, movie_id, profile_id, relevance_score, reason, rank, created_at, updated_at"

func scanSuggestion(scanner rowScanner) (taxonomy.Suggestion, error) {
	var (
		sg      taxonomy.Suggestion
		score   sql.NullFloat64
		rank    sql.NullInt64
		created sql.NullString
		updated sql.NullString
	)
	if err := scanner.Scan(&sg.ID, &sg.MovieID, &sg.ProfileID, &score, &sg.Reason, &rank, &created, &updated); err != nil {
		return taxonomy.Suggestion{}, err
	}
	if score.Valid {
		v := score.Float64
		sg.RelevanceScore = &v
	}
	if rank.Valid {
		v := int(rank.Int64)
		sg.Rank = &v
	}
	sg.CreatedAt = parseTime(created)
	sg.UpdatedAt = parseTime(updated)
	return sg, nil
}

// SuggestionFilter narrows ListSuggestions. Zero values match everything.
type SuggestionFilter struct {
	MovieID   int64
	ProfileID int64
	// Below keeps rows whose score is unset or strictly lower.
	Below *float64
}

// EnsureSuggestion creates an unscored suggestion for (movie, profile) when absent.
func (s *Store) EnsureSuggestion(ctx context.Context, movieID, profileID int64) (taxonomy.Suggestion, error) {
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO suggestions (movie_id, profile_id, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(movie_id, profile_id) DO NOTHING`,
		movieID, profileID, now, now,
	); err != nil {
		return taxonomy.Suggestion{}, fmt.Errorf("insert suggestion: %w", err)
	}
	sg, err := s.Suggestion(ctx, movieID, profileID)
	if err != nil {
		return taxonomy.Suggestion{}, err
	}
	if sg == nil {
		return taxonomy.Suggestion{}, fmt.Errorf("suggestion (%d, %d) missing after insert", movieID, profileID)
	}
	return *sg, nil
}

// Suggestion returns the suggestion keyed by (movie, profile) or nil.
func (s *Store) Suggestion(ctx context.Context, movieID, profileID int64) (*taxonomy.Suggestion, error) {
	sg, err := scanSuggestion(s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE movie_id = ? AND profile_id = ?`, movieID, profileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	return &sg, nil
}

// ListSuggestions returns suggestions matching filter ordered by movie then profile.
func (s *Store) ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]taxonomy.Suggestion, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.MovieID > 0 {
		clauses = append(clauses, "movie_id = ?")
		args = append(args, filter.MovieID)
	}
	if filter.ProfileID > 0 {
		clauses = append(clauses, "profile_id = ?")
		args = append(args, filter.ProfileID)
	}
	if filter.Below != nil {
		clauses = append(clauses, "(relevance_score IS NULL OR relevance_score < ?)")
		args = append(args, *filter.Below)
	}
	query := `SELECT ` + suggestionColumns + ` FROM suggestions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY movie_id, profile_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// SetSuggestionScore replaces the stored score of (movie, profile), creating
// the row when absent. The reason is left untouched.
func (s *Store) SetSuggestionScore(ctx context.Context, movieID, profileID int64, score float64) error {
	now := s.timestamp()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO suggestions (movie_id, profile_id, relevance_score, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(movie_id, profile_id) DO UPDATE SET relevance_score = excluded.relevance_score, updated_at = excluded.updated_at`,
		movieID, profileID, score, now, now,
	)
	if err != nil {
		return fmt.Errorf("set suggestion score: %w", err)
	}
	return nil
}

// SetSuggestionReason replaces the narrative reason of (movie, profile).
func (s *Store) SetSuggestionReason(ctx context.Context, movieID, profileID int64, reason string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE suggestions SET reason = ?, updated_at = ? WHERE movie_id = ? AND profile_id = ?`,
		strings.TrimSpace(reason), s.timestamp(), movieID, profileID,
	)
	if err != nil {
		return fmt.Errorf("set suggestion reason: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("suggestion (%d, %d) not found", movieID, profileID)
	}
	return nil
}

// SetSuggestionRanks writes ranks for a movie's suggestions in one
// transaction. Rows absent from ranks get a NULL rank.
func (s *Store) SetSuggestionRanks(ctx context.Context, movieID int64, ranks map[int64]int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		if _, err := tx.ExecContext(ctx,
			`UPDATE suggestions SET rank = NULL, updated_at = ? WHERE movie_id = ?`, now, movieID,
		); err != nil {
			return fmt.Errorf("clear ranks: %w", err)
		}
		for id, rank := range ranks {
			if _, err := tx.ExecContext(ctx,
				`UPDATE suggestions SET rank = ?, updated_at = ? WHERE id = ? AND movie_id = ?`, rank, now, id, movieID,
			); err != nil {
				return fmt.Errorf("set rank: %w", err)
			}
		}
		return nil
	})
}
