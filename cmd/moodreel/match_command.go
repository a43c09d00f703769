package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moodreel/internal/matcher"
	"moodreel/internal/services"
	"moodreel/internal/store"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		explanation string
		hint        int64
		scores      bool
	)

	cmd := &cobra.Command{
		Use:   "match <main-sentiment> <label>",
		Short: "Resolve a concept label against the taxonomy without writing anything",
		Long: "Run the concept matcher for one label. The main sentiment may be given by id or name.\n" +
			"With --scores every in-scope concept is listed with its first-pass score.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			scope, err := resolveMainSentiment(cmd, st, args[0])
			if err != nil {
				return err
			}
			roster, err := st.AllSubSentiments(cmd.Context())
			if err != nil {
				return err
			}

			m := matcher.New(matcher.SynonymTable(cfg.Matcher.Synonyms),
				matcher.WithAcceptThreshold(cfg.Curation.AcceptThreshold),
				matcher.WithProposals(cfg.Curation.ProposeNewConcepts),
			)
			candidate := matcher.Candidate{Label: args[1], Explanation: explanation, HintedID: hint}
			outcome := m.Match(candidate, scope, roster)

			if ctx.JSONMode() {
				view := map[string]any{
					"kind":   string(outcome.Kind),
					"pass":   string(outcome.Pass),
					"score":  outcome.Score,
					"reason": outcome.Reason,
				}
				if outcome.Kind == matcher.Matched {
					view["sub_sentiment_id"] = outcome.Entry.ID
					view["sub_sentiment"] = outcome.Entry.Name
				}
				if outcome.Proposal != nil {
					view["proposal"] = outcome.Proposal
				}
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			switch outcome.Kind {
			case matcher.Matched:
				fmt.Fprintf(out, "Matched %s (id %d) via %s pass, score %.2f\n", outcome.Entry.Name, outcome.Entry.ID, outcome.Pass, outcome.Score)
			case matcher.ProposeNew:
				fmt.Fprintf(out, "No match (%s); would propose %q\n", outcome.Reason, outcome.Proposal.Name)
			default:
				fmt.Fprintf(out, "No match (%s)\n", outcome.Reason)
			}
			if scores {
				scoped := roster.Scoped(scope)
				rows := make([][]string, 0, len(scoped))
				for _, entry := range scoped {
					rows = append(rows, []string{
						strconv.FormatInt(entry.ID, 10),
						entry.Name,
						strconv.FormatFloat(m.Score(args[1], explanation, entry), 'f', 2, 64),
						strings.Join(entry.Keywords, ", "),
					})
				}
				fmt.Fprintln(out, renderTable([]column{numCol("ID"), col("Concept"), numCol("Score"), col("Keywords")}, rows))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&explanation, "explanation", "", "Explanation text accompanying the label")
	cmd.Flags().Int64Var(&hint, "hint", 0, "Concept id echoed by the collaborator")
	cmd.Flags().BoolVar(&scores, "scores", false, "List first-pass scores for every in-scope concept")
	return cmd
}

// resolveMainSentiment accepts a numeric id or an exact name.
func resolveMainSentiment(cmd *cobra.Command, st *store.Store, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
		return id, nil
	}
	ms, err := st.MainSentimentByName(cmd.Context(), raw)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return 0, services.Wrap(services.ErrNotFound, "cli", "match", fmt.Sprintf("main sentiment %q", raw), nil)
	}
	return ms.ID, nil
}
