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

const proposalColumns = "id, main_sentiment_id, name, keywords_json, movie_id, relevance, explanation, status, decided_by, decided_at, sub_sentiment_id, created_at"

func scanProposal(scanner rowScanner) (taxonomy.Proposal, error) {
	var (
		p         taxonomy.Proposal
		keywords  string
		status    string
		decidedBy sql.NullString
		decidedAt sql.NullString
		subID     sql.NullInt64
		created   sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.MainSentimentID, &p.Name, &keywords, &p.MovieID, &p.Relevance, &p.Explanation,
		&status, &decidedBy, &decidedAt, &subID, &created); err != nil {
		return taxonomy.Proposal{}, err
	}
	p.Keywords = decodeList(keywords)
	p.Status = taxonomy.ProposalStatus(status)
	p.DecidedBy = decidedBy.String
	p.DecidedAt = parseTimePtr(decidedAt)
	p.SubSentimentID = int64Ptr(subID)
	p.CreatedAt = parseTime(created)
	return p, nil
}

// ErrProposalDecided is returned when approving or rejecting a closed proposal.
var ErrProposalDecided = errors.New("proposal already decided")

// AddProposal records a pending concept proposal and reports whether a new
// row was created. A repeat proposal for the same (owner, name, movie) keeps
// the strongest carried association while pending; a decided proposal is
// returned unchanged.
func (s *Store) AddProposal(ctx context.Context, p taxonomy.Proposal) (taxonomy.Proposal, bool, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return taxonomy.Proposal{}, false, errors.New("proposal name required")
	}
	var (
		id      int64
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		created = false
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT id, status FROM concept_proposals WHERE main_sentiment_id = ? AND name = ? AND movie_id = ?`,
			p.MainSentimentID, name, p.MovieID,
		).Scan(&id, &status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO concept_proposals (main_sentiment_id, name, keywords_json, movie_id, relevance, explanation, status, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				p.MainSentimentID, name, encodeList(p.Keywords), p.MovieID, p.Relevance, p.Explanation,
				string(taxonomy.ProposalPending), s.timestamp(),
			)
			if err != nil {
				return err
			}
			created = true
			id, err = res.LastInsertId()
			return err
		case err != nil:
			return err
		case taxonomy.ProposalStatus(status) != taxonomy.ProposalPending:
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE concept_proposals SET
			   relevance = MAX(relevance, ?),
			   explanation = CASE WHEN length(?) > length(explanation) THEN ? ELSE explanation END
			 WHERE id = ? AND status = ?`,
			p.Relevance, p.Explanation, p.Explanation, id, string(taxonomy.ProposalPending),
		)
		return err
	})
	if err != nil {
		return taxonomy.Proposal{}, false, fmt.Errorf("insert proposal: %w", err)
	}
	stored, err := s.Proposal(ctx, id)
	if err != nil {
		return taxonomy.Proposal{}, false, err
	}
	if stored == nil {
		return taxonomy.Proposal{}, false, fmt.Errorf("proposal %d vanished", id)
	}
	return *stored, created, nil
}

// Proposal returns the proposal with id or nil.
func (s *Store) Proposal(ctx context.Context, id int64) (*taxonomy.Proposal, error) {
	p, err := scanProposal(s.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM concept_proposals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	return &p, nil
}

// ListProposals returns proposals by id, optionally restricted to statuses.
func (s *Store) ListProposals(ctx context.Context, statuses ...taxonomy.ProposalStatus) ([]taxonomy.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM concept_proposals`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []taxonomy.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AdmitProposal is the approved admit step. In one transaction it reuses the
// lowest-id concept with the proposal's name under its owner or creates one,
// merges the carried association through merge, and closes the proposal.
func (s *Store) AdmitProposal(ctx context.Context, id int64, approvedBy string, merge association.MergeFunc) (taxonomy.SubSentiment, association.Outcome, error) {
	approvedBy = strings.TrimSpace(approvedBy)
	if approvedBy == "" {
		return taxonomy.SubSentiment{}, "", errors.New("approver required")
	}
	if merge == nil {
		merge = association.Merge
	}
	var (
		sub     taxonomy.SubSentiment
		outcome association.Outcome
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanProposal(tx.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM concept_proposals WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("proposal %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("load proposal: %w", err)
		}
		if p.Status != taxonomy.ProposalPending {
			return fmt.Errorf("%w: proposal %d is %s", ErrProposalDecided, id, p.Status)
		}

		now := s.timestamp()
		sub, err = scanSubSentiment(tx.QueryRowContext(ctx,
			`SELECT `+subSentimentColumns+` FROM sub_sentiments WHERE main_sentiment_id = ? AND name = ? ORDER BY id LIMIT 1`,
			p.MainSentimentID, p.Name))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx,
				`INSERT INTO sub_sentiments (name, main_sentiment_id, keywords_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
				p.Name, p.MainSentimentID, encodeList(p.Keywords), now, now)
			if err != nil {
				return fmt.Errorf("insert sub sentiment: %w", err)
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("sub sentiment id: %w", err)
			}
			sub = taxonomy.SubSentiment{ID: newID, Name: p.Name, MainSentimentID: p.MainSentimentID, Keywords: p.Keywords,
				CreatedAt: s.now().UTC(), UpdatedAt: s.now().UTC()}
		case err != nil:
			return fmt.Errorf("find sub sentiment: %w", err)
		}

		incoming := taxonomy.Association{
			MovieID:         p.MovieID,
			MainSentimentID: p.MainSentimentID,
			SubSentimentID:  sub.ID,
			SubSentiment:    sub.Name,
			Relevance:       p.Relevance,
			Explanation:     p.Explanation,
		}
		existing, err := loadAssociationTx(ctx, tx, incoming.Key())
		if err != nil {
			return fmt.Errorf("load association: %w", err)
		}
		merged, result := merge(existing, incoming)
		if _, err := writeAssociationTx(ctx, tx, merged, result, now); err != nil {
			return err
		}
		outcome = result

		if _, err := tx.ExecContext(ctx,
			`UPDATE concept_proposals SET status = ?, decided_by = ?, decided_at = ?, sub_sentiment_id = ? WHERE id = ?`,
			string(taxonomy.ProposalApproved), approvedBy, now, sub.ID, id,
		); err != nil {
			return fmt.Errorf("close proposal: %w", err)
		}
		return nil
	})
	if err != nil {
		return taxonomy.SubSentiment{}, "", err
	}
	return sub, outcome, nil
}

// RejectProposal closes a pending proposal without touching the taxonomy.
func (s *Store) RejectProposal(ctx context.Context, id int64, rejectedBy string) error {
	rejectedBy = strings.TrimSpace(rejectedBy)
	if rejectedBy == "" {
		return errors.New("reviewer required")
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE concept_proposals SET status = ?, decided_by = ?, decided_at = ? WHERE id = ? AND status = ?`,
		string(taxonomy.ProposalRejected), rejectedBy, s.timestamp(), id, string(taxonomy.ProposalPending),
	)
	if err != nil {
		return fmt.Errorf("reject proposal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		p, loadErr := s.Proposal(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		if p == nil {
			return fmt.Errorf("proposal %d not found", id)
		}
		return fmt.Errorf("%w: proposal %d is %s", ErrProposalDecided, id, p.Status)
	}
	return nil
}

// CountProposals returns the number of proposals with status.
func (s *Store) CountProposals(ctx context.Context, status taxonomy.ProposalStatus) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM concept_proposals WHERE status = ?`, string(status),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return count, nil
}
