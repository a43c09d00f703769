package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moodreel/internal/taxonomy"
)

const subSentimentColumns = "id, name, main_sentiment_id, keywords_json, created_at, updated_at"

func scanSubSentiment(scanner rowScanner) (taxonomy.SubSentiment, error) {
	var (
		sub      taxonomy.SubSentiment
		keywords string
		created  sql.NullString
		updated  sql.NullString
	)
	if err := scanner.Scan(&sub.ID, &sub.Name, &sub.MainSentimentID, &keywords, &created, &updated); err != nil {
		return taxonomy.SubSentiment{}, err
	}
	sub.Keywords = decodeList(keywords)
	sub.CreatedAt = parseTime(created)
	sub.UpdatedAt = parseTime(updated)
	return sub, nil
}

// EnsureMainSentiment returns the MainSentiment named name, creating it when absent.
func (s *Store) EnsureMainSentiment(ctx context.Context, name string) (taxonomy.MainSentiment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return taxonomy.MainSentiment{}, errors.New("main sentiment name required")
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO main_sentiments (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, s.timestamp(),
	); err != nil {
		return taxonomy.MainSentiment{}, fmt.Errorf("insert main sentiment: %w", err)
	}
	var (
		main    taxonomy.MainSentiment
		created sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM main_sentiments WHERE name = ?`, name).
		Scan(&main.ID, &main.Name, &created)
	if err != nil {
		return taxonomy.MainSentiment{}, fmt.Errorf("load main sentiment: %w", err)
	}
	main.CreatedAt = parseTime(created)
	return main, nil
}

// MainSentiments lists root categories by id.
func (s *Store) MainSentiments(ctx context.Context) ([]taxonomy.MainSentiment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM main_sentiments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list main sentiments: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.MainSentiment
	for rows.Next() {
		var (
			main    taxonomy.MainSentiment
			created sql.NullString
		)
		if err := rows.Scan(&main.ID, &main.Name, &created); err != nil {
			return nil, err
		}
		main.CreatedAt = parseTime(created)
		out = append(out, main)
	}
	return out, rows.Err()
}

// MainSentimentByName returns the named category or nil when absent.
func (s *Store) MainSentimentByName(ctx context.Context, name string) (*taxonomy.MainSentiment, error) {
	var (
		main    taxonomy.MainSentiment
		created sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM main_sentiments WHERE name = ?`, strings.TrimSpace(name)).
		Scan(&main.ID, &main.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load main sentiment: %w", err)
	}
	main.CreatedAt = parseTime(created)
	return &main, nil
}

// CreateSubSentiment inserts a new concept under mainSentimentID. It does not
// deduplicate; use EnsureSubSentiment for idempotent seeding.
func (s *Store) CreateSubSentiment(ctx context.Context, mainSentimentID int64, name string, keywords []string) (taxonomy.SubSentiment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return taxonomy.SubSentiment{}, errors.New("sub sentiment name required")
	}
	now := s.timestamp()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO sub_sentiments (name, main_sentiment_id, keywords_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, mainSentimentID, encodeList(keywords), now, now,
	)
	if err != nil {
		return taxonomy.SubSentiment{}, fmt.Errorf("insert sub sentiment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return taxonomy.SubSentiment{}, fmt.Errorf("sub sentiment id: %w", err)
	}
	sub, err := s.SubSentiment(ctx, id)
	if err != nil {
		return taxonomy.SubSentiment{}, err
	}
	if sub == nil {
		return taxonomy.SubSentiment{}, fmt.Errorf("sub sentiment %d vanished after insert", id)
	}
	return *sub, nil
}

// EnsureSubSentiment returns the lowest-id concept named name under
// mainSentimentID, creating it when absent. Keywords of an existing row are
// replaced when keywords is non-empty.
func (s *Store) EnsureSubSentiment(ctx context.Context, mainSentimentID int64, name string, keywords []string) (taxonomy.SubSentiment, bool, error) {
	existing, err := s.FindSubSentiment(ctx, mainSentimentID, name)
	if err != nil {
		return taxonomy.SubSentiment{}, false, err
	}
	if existing == nil {
		created, err := s.CreateSubSentiment(ctx, mainSentimentID, name, keywords)
		return created, true, err
	}
	if len(keywords) > 0 {
		if _, err := s.execWithRetry(ctx,
			`UPDATE sub_sentiments SET keywords_json = ?, updated_at = ? WHERE id = ?`,
			encodeList(keywords), s.timestamp(), existing.ID,
		); err != nil {
			return taxonomy.SubSentiment{}, false, fmt.Errorf("update keywords: %w", err)
		}
		existing.Keywords = keywords
	}
	return *existing, false, nil
}

// SubSentiment returns the concept with id or nil when absent.
func (s *Store) SubSentiment(ctx context.Context, id int64) (*taxonomy.SubSentiment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subSentimentColumns+` FROM sub_sentiments WHERE id = ?`, id)
	sub, err := scanSubSentiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sub sentiment: %w", err)
	}
	return &sub, nil
}

// FindSubSentiment returns the lowest-id concept with the exact name under the owner, or nil.
func (s *Store) FindSubSentiment(ctx context.Context, mainSentimentID int64, name string) (*taxonomy.SubSentiment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subSentimentColumns+` FROM sub_sentiments WHERE main_sentiment_id = ? AND name = ? ORDER BY id LIMIT 1`,
		mainSentimentID, strings.TrimSpace(name),
	)
	sub, err := scanSubSentiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find sub sentiment: %w", err)
	}
	return &sub, nil
}

// Roster lists the concepts owned by mainSentimentID in ascending id order.
func (s *Store) Roster(ctx context.Context, mainSentimentID int64) (taxonomy.Roster, error) {
	return s.querySubSentiments(ctx,
		`SELECT `+subSentimentColumns+` FROM sub_sentiments WHERE main_sentiment_id = ? ORDER BY id`, mainSentimentID)
}

// AllSubSentiments lists every concept in ascending id order.
func (s *Store) AllSubSentiments(ctx context.Context) (taxonomy.Roster, error) {
	return s.querySubSentiments(ctx, `SELECT `+subSentimentColumns+` FROM sub_sentiments ORDER BY id`)
}

func (s *Store) querySubSentiments(ctx context.Context, query string, args ...any) (taxonomy.Roster, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sub sentiments: %w", err)
	}
	defer rows.Close()

	var out taxonomy.Roster
	for rows.Next() {
		sub, err := scanSubSentiment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
