package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moodreel/internal/canonical"
	"moodreel/internal/config"
	"moodreel/internal/logging"
	"moodreel/internal/maintenance"
	"moodreel/internal/metrics"
	"moodreel/internal/notifications"
	"moodreel/internal/services"
	"moodreel/internal/taxonomy"
)

func newCanonicalizeCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	canonCmd := &cobra.Command{
		Use:   "canonicalize",
		Short: "Deduplicate profile DNA or the global taxonomy",
		Long: "Canonicalization holds the maintenance lock exclusively. A pass that fails its\n" +
			"verification blocks scoring until a later pass succeeds.",
	}
	canonCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Report the plan without changing storage")

	canonCmd.AddCommand(&cobra.Command{
		Use:   "profile <profile-id>",
		Short: "Collapse DNA rows of a profile that reference the same concept name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := parseID(args[0], "profile")
			if err != nil {
				return err
			}
			return runCanonicalPass(cmd, ctx, taxonomy.PassProfileDNA, fmt.Sprintf("profile %d", profileID),
				func(c context.Context, svc *canonical.Service) (any, int, error) {
					report, err := svc.DedupProfile(c, profileID, dryRun)
					if err == nil && !ctx.JSONMode() {
						renderProfileReport(cmd, report)
					}
					return profileReportView(report), report.Deleted, err
				})
		},
	})

	canonCmd.AddCommand(&cobra.Command{
		Use:   "taxonomy",
		Short: "Merge concepts sharing a name within a main sentiment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanonicalPass(cmd, ctx, taxonomy.PassTaxonomy, "global",
				func(c context.Context, svc *canonical.Service) (any, int, error) {
					report, err := svc.DedupTaxonomy(c, dryRun)
					if err == nil && !ctx.JSONMode() {
						renderTaxonomyReport(cmd, report)
					}
					return taxonomyReportView(report), report.Stats.DeletedSubSentiments, err
				})
		},
	})

	return canonCmd
}

type canonicalPassFunc func(ctx context.Context, svc *canonical.Service) (view any, deleted int, err error)

func runCanonicalPass(cmd *cobra.Command, ctx *commandContext, pass taxonomy.CanonicalPass, scope string, fn canonicalPassFunc) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	svc := canonical.NewService(st, logger)
	rec := metrics.New()

	var (
		view    any
		deleted int
	)
	err = ctx.withLock(cmd.Context(), maintenance.Exclusive, func() error {
		view, deleted, err = fn(cmd.Context(), svc)
		return err
	})
	rec.CanonicalDeletions(string(pass), deleted)
	if exportErr := rec.WriteTextfile(cfg.Metrics.Textfile); exportErr != nil {
		logger.Warn("metrics export failed", logging.Error(exportErr))
	}
	if err != nil {
		if errors.Is(err, services.ErrVerification) {
			notifyVerificationFailure(cmd.Context(), cfg, logger, pass, scope, err)
		}
		return err
	}
	if ctx.JSONMode() {
		return writeJSON(cmd, view)
	}
	return nil
}

func notifyVerificationFailure(ctx context.Context, cfg *config.Config, logger *slog.Logger, pass taxonomy.CanonicalPass, scope string, cause error) {
	notifier := notifications.NewService(cfg)
	if err := notifier.Publish(ctx, notifications.EventVerificationFailed, notifications.Payload{
		"pass":   string(pass),
		"scope":  scope,
		"detail": cause.Error(),
	}); err != nil {
		logger.Warn("verification notification failed", logging.Error(err))
	}
}

type canonicalRunView struct {
	RunID            string `json:"run_id"`
	Pass             string `json:"pass"`
	Status           string `json:"status"`
	DryRun           bool   `json:"dry_run"`
	PlannedDeletions int    `json:"planned_deletions"`
	Detail           string `json:"detail"`
}

func toRunView(run taxonomy.CanonicalRun) canonicalRunView {
	return canonicalRunView{
		RunID:            run.RunID,
		Pass:             string(run.Pass),
		Status:           string(run.Status),
		DryRun:           run.DryRun,
		PlannedDeletions: run.PlannedDeletions,
		Detail:           run.Detail,
	}
}

type profileGroupView struct {
	Name       string  `json:"name"`
	KeepRowID  int64   `json:"keep_row_id"`
	KeepWeight float64 `json:"keep_weight"`
	DeleteRows []int64 `json:"delete_row_ids"`
}

func profileReportView(report canonical.ProfileReport) map[string]any {
	groups := make([]profileGroupView, 0, len(report.Groups))
	for _, g := range report.Groups {
		ids := make([]int64, 0, len(g.Delete))
		for _, row := range g.Delete {
			ids = append(ids, row.ID)
		}
		groups = append(groups, profileGroupView{Name: g.Name, KeepRowID: g.Keep.ID, KeepWeight: g.Keep.Weight, DeleteRows: ids})
	}
	return map[string]any{"run": toRunView(report.Run), "groups": groups, "deleted": report.Deleted}
}

func taxonomyReportView(report canonical.TaxonomyReport) map[string]any {
	return map[string]any{
		"run":    toRunView(report.Run),
		"groups": report.Groups,
		"stats":  report.Stats,
		"before": report.Before,
		"after":  report.After,
	}
}

func renderProfileReport(cmd *cobra.Command, report canonical.ProfileReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSectionHeader("Profile DNA", colorize))
	if len(report.Groups) == 0 {
		fmt.Fprintln(out, "No duplicate DNA rows")
	} else {
		rows := make([][]string, 0, len(report.Groups))
		for _, g := range report.Groups {
			rows = append(rows, []string{
				g.Name,
				strconv.FormatInt(g.Keep.ID, 10),
				strconv.FormatFloat(g.Keep.Weight, 'f', 2, 64),
				strconv.Itoa(len(g.Delete)),
			})
		}
		fmt.Fprintln(out, renderTable([]column{col("Concept"), numCol("Keep row"), numCol("Weight"), numCol("Delete")}, rows))
	}
	fmt.Fprintln(out, runStatusLine(report.Run, colorize))
}

func renderTaxonomyReport(cmd *cobra.Command, report canonical.TaxonomyReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderSectionHeader("Taxonomy", colorize))
	if len(report.Groups) == 0 {
		fmt.Fprintln(out, "No duplicate concepts")
	} else {
		rows := make([][]string, 0, len(report.Groups))
		for _, g := range report.Groups {
			dups := make([]string, 0, len(g.DuplicateIDs))
			for _, id := range g.DuplicateIDs {
				dups = append(dups, strconv.FormatInt(id, 10))
			}
			rows = append(rows, []string{
				g.Name,
				strconv.FormatInt(g.MainSentimentID, 10),
				strconv.FormatInt(g.SurvivorID, 10),
				strings.Join(dups, ","),
			})
		}
		fmt.Fprintln(out, renderTable([]column{col("Concept"), numCol("Lens"), numCol("Survivor"), col("Duplicates")}, rows))
	}
	fmt.Fprintln(out, renderTable([]column{col("Table"), numCol("Before"), numCol("After")}, [][]string{
		{"sub_sentiments", strconv.Itoa(report.Before.SubSentiments), strconv.Itoa(report.After.SubSentiments)},
		{"associations", strconv.Itoa(report.Before.Associations), strconv.Itoa(report.After.Associations)},
		{"profile_dna", strconv.Itoa(report.Before.ProfileDNA), strconv.Itoa(report.After.ProfileDNA)},
	}))
	if len(report.Stats.Repointed) > 0 {
		tables := make([]string, 0, len(report.Stats.Repointed))
		for table := range report.Stats.Repointed {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			fmt.Fprintf(out, "%s: %d repointed, %d collisions resolved\n", table, report.Stats.Repointed[table], report.Stats.Resolved[table])
		}
	}
	fmt.Fprintln(out, runStatusLine(report.Run, colorize))
}

func runStatusLine(run taxonomy.CanonicalRun, colorize bool) string {
	kind := statusOK
	switch run.Status {
	case taxonomy.RunDryRun:
		kind = statusInfo
	case taxonomy.RunRunning:
		kind = statusWarn
	case taxonomy.RunFailed:
		kind = statusError
	}
	return renderStatusLine("Run "+run.RunID, kind, run.Detail, colorize)
}
