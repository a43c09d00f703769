package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moodreel/internal/taxonomy"
)

// CreateProfile inserts a journey option scored under the lens MainSentiment.
func (s *Store) CreateProfile(ctx context.Context, label string, mainSentimentID int64) (taxonomy.Profile, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return taxonomy.Profile{}, errors.New("profile label required")
	}
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO profiles (label, main_sentiment_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		label, mainSentimentID, now, now,
	)
	if err != nil {
		return taxonomy.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return taxonomy.Profile{}, fmt.Errorf("profile id: %w", err)
	}
	profile, err := s.Profile(ctx, id)
	if err != nil {
		return taxonomy.Profile{}, err
	}
	return *profile, nil
}

// EnsureProfile returns the profile with label under mainSentimentID, creating it when absent.
func (s *Store) EnsureProfile(ctx context.Context, label string, mainSentimentID int64) (taxonomy.Profile, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM profiles WHERE label = ? AND main_sentiment_id = ? ORDER BY id LIMIT 1`,
		strings.TrimSpace(label), mainSentimentID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.CreateProfile(ctx, label, mainSentimentID)
	}
	if err != nil {
		return taxonomy.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	profile, err := s.Profile(ctx, id)
	if err != nil {
		return taxonomy.Profile{}, err
	}
	return *profile, nil
}

// Profile returns the profile with id or nil.
func (s *Store) Profile(ctx context.Context, id int64) (*taxonomy.Profile, error) {
	var (
		p       taxonomy.Profile
		created sql.NullString
		updated sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, main_sentiment_id, created_at, updated_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Label, &p.MainSentimentID, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// Profiles lists all journey options by id.
func (s *Store) Profiles(ctx context.Context) ([]taxonomy.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, main_sentiment_id, created_at, updated_at FROM profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.Profile
	for rows.Next() {
		var (
			p       taxonomy.Profile
			created sql.NullString
			updated sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Label, &p.MainSentimentID, &created, &updated); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddDNA inserts a DNA row. An existing (profile, concept) row keeps its id
// and takes the new weight.
func (s *Store) AddDNA(ctx context.Context, profileID, subSentimentID int64, weight float64) error {
	if weight <= 0 {
		return fmt.Errorf("dna weight must be positive, got %v", weight)
	}
	now := s.timestamp()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO profile_dna (profile_id, sub_sentiment_id, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(profile_id, sub_sentiment_id) DO UPDATE SET weight = excluded.weight, updated_at = excluded.updated_at`,
		profileID, subSentimentID, weight, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert dna row: %w", err)
	}
	return nil
}

// ProfileDNA lists a profile's DNA rows joined with concept names, by id.
func (s *Store) ProfileDNA(ctx context.Context, profileID int64) ([]taxonomy.DNARow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.profile_id, d.sub_sentiment_id, s.name, s.main_sentiment_id, d.weight, d.created_at, d.updated_at
		 FROM profile_dna d JOIN sub_sentiments s ON s.id = d.sub_sentiment_id
		 WHERE d.profile_id = ? ORDER BY d.id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list profile dna: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.DNARow
	for rows.Next() {
		var (
			row     taxonomy.DNARow
			created sql.NullString
			updated sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.ProfileID, &row.SubSentimentID, &row.SubSentiment, &row.MainSentimentID, &row.Weight, &created, &updated); err != nil {
			return nil, err
		}
		row.CreatedAt = parseTime(created)
		row.UpdatedAt = parseTime(updated)
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteDNARows removes the given DNA rows in one transaction.
func (s *Store) DeleteDNARows(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM profile_dna WHERE id IN (`+makePlaceholders(len(ids))+`)`, int64Args(ids)...)
		if err != nil {
			return fmt.Errorf("delete dna rows: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return int(deleted), err
}
