package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"moodreel/internal/association"
	"moodreel/internal/curation"
	"moodreel/internal/maintenance"
	"moodreel/internal/metrics"
	"moodreel/internal/notifications"
)

func newCurateCommand(ctx *commandContext) *cobra.Command {
	var (
		profileIDs []int64
		movieIDs   []int64
		maxScore   float64
		limit      int
		sflags     suggesterFlags
	)

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Run the curation batch over pending suggestions",
		Long: "Ask the collaborator for concept matches on every unscored (movie, profile) pair,\n" +
			"write the accepted associations and recompute relevance scores.\n" +
			"With --max-score, scored pairs at or below the bound are reprocessed too.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sugg, err := buildSuggester(cfg, sflags)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			driver := curation.NewDriver(cfg, st, sugg,
				curation.WithLogger(logger),
				curation.WithMetrics(metrics.New()),
				curation.WithNotifier(notifications.NewService(cfg)),
			)

			req := curation.Request{
				ProfileIDs: profileIDs,
				MovieIDs:   movieIDs,
				MaxScore:   optionalFloat(cmd.Flags().Changed("max-score"), maxScore),
				Limit:      limit,
			}
			var summary curation.Summary
			err = ctx.withLock(cmd.Context(), maintenance.Shared, func() error {
				summary, err = driver.Run(cmd.Context(), req)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, summary)
			}
			renderCurationSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&profileIDs, "profile", nil, "Restrict to profile ids (repeatable)")
	cmd.Flags().Int64SliceVar(&movieIDs, "movie", nil, "Restrict to movie ids (repeatable)")
	cmd.Flags().Float64Var(&maxScore, "max-score", 0, "Also reprocess scored pairs at or below this score")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum movies to process (defaults to curation.batch_size)")
	cmd.Flags().StringVar(&sflags.recordDir, "record", "", "Write collaborator responses to this directory")
	cmd.Flags().StringVar(&sflags.replayDir, "replay", "", "Replay collaborator responses from this directory instead of calling the LLM")
	cmd.MarkFlagsMutuallyExclusive("record", "replay")
	return cmd
}

func renderCurationSummary(cmd *cobra.Command, summary curation.Summary) {
	out := cmd.OutOrStdout()
	if len(summary.Movies) == 0 {
		fmt.Fprintln(out, "Nothing to curate")
		return
	}
	rows := make([][]string, 0, len(summary.Movies))
	for _, movie := range summary.Movies {
		var created, updated, proposed, noMatch int
		for _, pair := range movie.Pairs {
			created += pair.Written[association.Created]
			updated += pair.Written[association.Updated]
			proposed += pair.Proposed
			noMatch += pair.NoMatch
		}
		rows = append(rows, []string{
			strconv.FormatInt(movie.MovieID, 10),
			movie.Title,
			movie.Status,
			movie.Reason,
			strconv.Itoa(created),
			strconv.Itoa(updated),
			strconv.Itoa(noMatch),
			strconv.Itoa(proposed),
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		numCol("ID"), col("Title"), col("Status"), col("Reason"),
		numCol("Created"), numCol("Updated"), numCol("No match"), numCol("Proposed"),
	}, rows))
	fmt.Fprintf(out, "Run %s: %d processed, %d skipped, %d failed in %s\n",
		summary.RunID, summary.Processed, summary.Skipped, summary.Failed, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Scores changed: %d, reasons written: %d, proposals created: %d\n",
		summary.Recompute.Changed, summary.Recompute.ReasonsWritten, summary.ProposalsCreated)
}
