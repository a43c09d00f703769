package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"moodreel/internal/association"
	"moodreel/internal/maintenance"
	"moodreel/internal/services"
	"moodreel/internal/taxonomy"
)

type proposalView struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	MainSentimentID int64      `json:"main_sentiment_id"`
	MovieID         int64      `json:"movie_id"`
	Relevance       float64    `json:"relevance"`
	Explanation     string     `json:"explanation"`
	Keywords        []string   `json:"keywords,omitempty"`
	Status          string     `json:"status"`
	DecidedBy       string     `json:"decided_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	SubSentimentID  *int64     `json:"sub_sentiment_id,omitempty"`
}

func toProposalView(p taxonomy.Proposal) proposalView {
	return proposalView{
		ID:              p.ID,
		Name:            p.Name,
		MainSentimentID: p.MainSentimentID,
		MovieID:         p.MovieID,
		Relevance:       p.Relevance,
		Explanation:     p.Explanation,
		Keywords:        p.Keywords,
		Status:          string(p.Status),
		DecidedBy:       p.DecidedBy,
		DecidedAt:       p.DecidedAt,
		SubSentimentID:  p.SubSentimentID,
	}
}

func newProposalsCommand(ctx *commandContext) *cobra.Command {
	proposalsCmd := &cobra.Command{
		Use:     "proposals",
		Aliases: []string{"proposal"},
		Short:   "Review concepts proposed during curation",
	}
	proposalsCmd.AddCommand(newProposalsListCommand(ctx))
	proposalsCmd.AddCommand(newProposalsApproveCommand(ctx))
	proposalsCmd.AddCommand(newProposalsRejectCommand(ctx))
	return proposalsCmd
}

func parseProposalStatus(raw string) ([]taxonomy.ProposalStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(taxonomy.ProposalPending):
		return []taxonomy.ProposalStatus{taxonomy.ProposalPending}, nil
	case string(taxonomy.ProposalApproved):
		return []taxonomy.ProposalStatus{taxonomy.ProposalApproved}, nil
	case string(taxonomy.ProposalRejected):
		return []taxonomy.ProposalStatus{taxonomy.ProposalRejected}, nil
	case "all":
		return nil, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "cli", "proposals", fmt.Sprintf("unknown status %q", raw), nil)
	}
}

func newProposalsListCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseProposalStatus(status)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			proposals, err := st.ListProposals(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			views := make([]proposalView, 0, len(proposals))
			for _, p := range proposals {
				views = append(views, toProposalView(p))
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No proposals")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					strconv.FormatInt(v.ID, 10),
					v.Name,
					strconv.FormatInt(v.MainSentimentID, 10),
					strconv.FormatInt(v.MovieID, 10),
					strconv.FormatFloat(v.Relevance, 'f', 2, 64),
					v.Status,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				numCol("ID"), col("Name"), numCol("Lens"), numCol("Movie"), numCol("Relevance"), col("Status"),
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "pending", "Filter by status (pending, approved, rejected, all)")
	return cmd
}

func reviewerFlag(cmd *cobra.Command, target *string, name string) {
	cmd.Flags().StringVar(target, name, os.Getenv("USER"), "Reviewer recorded on the decision")
}

func newProposalsApproveCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "approve <proposal-id>",
		Short: "Admit a proposal into the taxonomy and write its association",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "proposal")
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			var (
				sub     taxonomy.SubSentiment
				outcome association.Outcome
			)
			err = ctx.withLock(cmd.Context(), maintenance.Shared, func() error {
				sub, outcome, err = st.AdmitProposal(cmd.Context(), id, reviewer, association.Merge)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"proposal_id":      id,
					"sub_sentiment_id": sub.ID,
					"name":             sub.Name,
					"association":      string(outcome),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d approved as concept %d (%s); association %s\n", id, sub.ID, sub.Name, outcome)
			return nil
		},
	}
	reviewerFlag(cmd, &reviewer, "approved-by")
	return cmd
}

func newProposalsRejectCommand(ctx *commandContext) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "reject <proposal-id>",
		Short: "Reject a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "proposal")
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			if err := st.RejectProposal(cmd.Context(), id, reviewer); err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"proposal_id": id, "status": string(taxonomy.ProposalRejected)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d rejected\n", id)
			return nil
		},
	}
	reviewerFlag(cmd, &reviewer, "rejected-by")
	return cmd
}
