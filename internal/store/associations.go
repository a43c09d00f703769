package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moodreel/internal/association"
	"moodreel/internal/taxonomy"
)

const associationColumns = `a.id, a.movie_id, a.main_sentiment_id, a.sub_sentiment_id, s.name, a.relevance, a.explanation, a.created_at, a.updated_at`

func scanAssociation(scanner rowScanner) (taxonomy.Association, error) {
	var (
		a       taxonomy.Association
		created sql.NullString
		updated sql.NullString
	)
	if err := scanner.Scan(&a.ID, &a.MovieID, &a.MainSentimentID, &a.SubSentimentID, &a.SubSentiment,
		&a.Relevance, &a.Explanation, &created, &updated); err != nil {
		return taxonomy.Association{}, err
	}
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return a, nil
}

func loadAssociationTx(ctx context.Context, tx *sql.Tx, key taxonomy.AssociationKey) (*taxonomy.Association, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+associationColumns+`
		 FROM movie_sentiments a JOIN sub_sentiments s ON s.id = a.sub_sentiment_id
		 WHERE a.movie_id = ? AND a.main_sentiment_id = ? AND a.sub_sentiment_id = ?`,
		key.MovieID, key.MainSentimentID, key.SubSentimentID,
	)
	a, err := scanAssociation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// writeAssociationTx persists the merged row, inserting when it has no id.
func writeAssociationTx(ctx context.Context, tx *sql.Tx, merged taxonomy.Association, outcome association.Outcome, now string) (taxonomy.Association, error) {
	switch outcome {
	case association.Created:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO movie_sentiments (movie_id, main_sentiment_id, sub_sentiment_id, relevance, explanation, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			merged.MovieID, merged.MainSentimentID, merged.SubSentimentID, merged.Relevance, merged.Explanation, now, now,
		)
		if err != nil {
			return taxonomy.Association{}, fmt.Errorf("insert association: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return taxonomy.Association{}, fmt.Errorf("association id: %w", err)
		}
		merged.ID = id
	case association.Updated:
		if _, err := tx.ExecContext(ctx,
			`UPDATE movie_sentiments SET relevance = ?, explanation = ?, updated_at = ? WHERE id = ?`,
			merged.Relevance, merged.Explanation, now, merged.ID,
		); err != nil {
			return taxonomy.Association{}, fmt.Errorf("update association: %w", err)
		}
	}
	return merged, nil
}

// MergeAssociation applies merge to the row keyed by incoming inside one
// IMMEDIATE transaction, so the read-compare-write is atomic per triple.
func (s *Store) MergeAssociation(ctx context.Context, incoming taxonomy.Association, merge association.MergeFunc) (taxonomy.Association, association.Outcome, error) {
	if merge == nil {
		merge = association.Merge
	}
	var (
		stored  taxonomy.Association
		outcome association.Outcome
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := loadAssociationTx(ctx, tx, incoming.Key())
		if err != nil {
			return fmt.Errorf("load association: %w", err)
		}
		merged, result := merge(existing, incoming)
		stored, err = writeAssociationTx(ctx, tx, merged, result, s.timestamp())
		if err != nil {
			return err
		}
		outcome = result
		return nil
	})
	if err != nil {
		return taxonomy.Association{}, "", err
	}
	if stored.SubSentiment == "" {
		stored.SubSentiment = incoming.SubSentiment
	}
	return stored, outcome, nil
}

// MovieAssociations lists a movie's associations joined with concept names, by id.
func (s *Store) MovieAssociations(ctx context.Context, movieID int64) ([]taxonomy.Association, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+associationColumns+`
		 FROM movie_sentiments a JOIN sub_sentiments s ON s.id = a.sub_sentiment_id
		 WHERE a.movie_id = ? ORDER BY a.id`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssociationsForSubSentiment counts associations that reference sub.
func (s *Store) AssociationsForSubSentiment(ctx context.Context, subSentimentID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM movie_sentiments WHERE sub_sentiment_id = ?`, subSentimentID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count associations: %w", err)
	}
	return count, nil
}
