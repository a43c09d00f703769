package canonical

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"moodreel/internal/association"
	"moodreel/internal/logging"
	"moodreel/internal/services"
	"moodreel/internal/taxonomy"
)

// Store is the persistence a canonicalization pass needs.
type Store interface {
	Profile(ctx context.Context, id int64) (*taxonomy.Profile, error)
	ProfileDNA(ctx context.Context, profileID int64) ([]taxonomy.DNARow, error)
	DeleteDNARows(ctx context.Context, ids []int64) (int, error)
	AllSubSentiments(ctx context.Context) (taxonomy.Roster, error)
	ApplyTaxonomyMerge(ctx context.Context, groups []taxonomy.MergeGroup, merge association.MergeFunc) (taxonomy.MergeStats, error)
	DuplicateTaxonomyGroups(ctx context.Context) (int, error)
	DuplicateProfileGroups(ctx context.Context, profileID int64) (int, error)
	DanglingReferences(ctx context.Context, ids []int64) (map[string]int, error)
	TableCounts(ctx context.Context) (taxonomy.TableCounts, error)
	RecordCanonicalRun(ctx context.Context, run taxonomy.CanonicalRun) (taxonomy.CanonicalRun, error)
	LatestCanonicalRun(ctx context.Context, pass taxonomy.CanonicalPass, profileID *int64) (*taxonomy.CanonicalRun, error)
}

// ProfileReport describes a profile DNA pass.
type ProfileReport struct {
	Run     taxonomy.CanonicalRun
	Groups  []ProfileGroup
	Deleted int
}

// TaxonomyReport describes a global taxonomy pass.
type TaxonomyReport struct {
	Run    taxonomy.CanonicalRun
	Groups []taxonomy.MergeGroup
	Stats  taxonomy.MergeStats
	Before taxonomy.TableCounts
	After  taxonomy.TableCounts
}

// Service runs canonicalization passes and answers the verification gate.
type Service struct {
	store    Store
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// NewService constructs a Service backed by st.
func NewService(st Store, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		logger:   logging.NewComponentLogger(logger, "canonical"),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// DedupProfile collapses DNA rows of profileID that share a concept name.
// With dryRun the plan is reported and recorded but storage is untouched.
func (s *Service) DedupProfile(ctx context.Context, profileID int64, dryRun bool) (ProfileReport, error) {
	run := s.startRun(taxonomy.PassProfileDNA, &profileID, dryRun)
	ctx = services.WithProfileID(services.WithRunID(ctx, run.RunID), profileID)
	logger := logging.WithContext(ctx, s.logger)

	profile, err := s.store.Profile(ctx, profileID)
	if err != nil {
		return ProfileReport{Run: run}, services.Wrap(services.ErrTransient, "canonical", "load profile", "", err)
	}
	if profile == nil {
		return ProfileReport{Run: run}, services.Wrap(services.ErrNotFound, "canonical", "load profile", fmt.Sprintf("profile %d", profileID), nil)
	}
	rows, err := s.store.ProfileDNA(ctx, profileID)
	if err != nil {
		return ProfileReport{Run: run}, services.Wrap(services.ErrTransient, "canonical", "load dna", "", err)
	}

	groups := PlanProfile(rows)
	ids := DeleteIDs(groups)
	report := ProfileReport{Groups: groups}
	run.PlannedDeletions = len(ids)
	for _, g := range groups {
		logger.Info("dna survivor chosen",
			logging.Args(append(logging.DecisionAttrs("dna_survivor", "keep", "highest weight, lowest concept id"),
				logging.String("name", g.Name),
				logging.Int64("keep_row", g.Keep.ID),
				logging.Float64("keep_weight", g.Keep.Weight),
				logging.Int("delete_rows", len(g.Delete)),
			)...)...)
	}

	if dryRun {
		report.Run, err = s.finish(ctx, run, taxonomy.RunDryRun, fmt.Sprintf("%d groups planned", len(groups)))
		return report, err
	}

	if err := s.markRunning(ctx, run); err != nil {
		report.Run = run
		return report, err
	}
	deleted, err := s.store.DeleteDNARows(ctx, ids)
	if err != nil {
		report.Run = s.fail(ctx, run, "delete failed: "+err.Error())
		return report, services.Wrap(services.ErrTransient, "canonical", "delete dna rows", "", err)
	}
	report.Deleted = deleted

	remaining, err := s.store.DuplicateProfileGroups(ctx, profileID)
	if err != nil {
		report.Run = s.fail(ctx, run, "verification query failed: "+err.Error())
		return report, services.Wrap(services.ErrVerification, "canonical", "verify profile", "query failed", err)
	}
	if remaining > 0 {
		detail := fmt.Sprintf("%d duplicate name groups remain", remaining)
		report.Run = s.fail(ctx, run, detail)
		return report, services.Wrap(services.ErrVerification, "canonical", "verify profile", detail, nil)
	}
	report.Run, err = s.finish(ctx, run, taxonomy.RunSucceeded, fmt.Sprintf("deleted %d rows", deleted))
	return report, err
}

// DedupTaxonomy merges SubSentiments sharing (name, owner) into the lowest id,
// re-pointing every dependent before deleting duplicates.
func (s *Service) DedupTaxonomy(ctx context.Context, dryRun bool) (TaxonomyReport, error) {
	run := s.startRun(taxonomy.PassTaxonomy, nil, dryRun)
	ctx = services.WithRunID(ctx, run.RunID)
	logger := logging.WithContext(ctx, s.logger)

	before, err := s.store.TableCounts(ctx)
	if err != nil {
		return TaxonomyReport{Run: run}, services.Wrap(services.ErrTransient, "canonical", "table counts", "", err)
	}
	subs, err := s.store.AllSubSentiments(ctx)
	if err != nil {
		return TaxonomyReport{Run: run}, services.Wrap(services.ErrTransient, "canonical", "load taxonomy", "", err)
	}
	groups := PlanTaxonomy(subs)
	dupIDs := DuplicateIDs(groups)
	run.PlannedDeletions = len(dupIDs)
	report := TaxonomyReport{Groups: groups, Before: before, After: before}
	for _, g := range groups {
		logger.Info("taxonomy survivor chosen",
			logging.Args(append(logging.DecisionAttrs("taxonomy_survivor", "keep", "lowest id"),
				logging.String("name", g.Name),
				logging.Int64("main_sentiment_id", g.MainSentimentID),
				logging.Int64("survivor_id", g.SurvivorID),
				logging.Any("duplicate_ids", g.DuplicateIDs),
			)...)...)
	}

	if dryRun {
		report.Run, err = s.finish(ctx, run, taxonomy.RunDryRun, fmt.Sprintf("%d groups planned", len(groups)))
		return report, err
	}

	if err := s.markRunning(ctx, run); err != nil {
		report.Run = run
		return report, err
	}
	stats, err := s.store.ApplyTaxonomyMerge(ctx, groups, association.Merge)
	if err != nil {
		report.Run = s.fail(ctx, run, "merge failed: "+err.Error())
		return report, services.Wrap(services.ErrTransient, "canonical", "apply merge", "", err)
	}
	report.Stats = stats

	if err := s.verifyTaxonomy(ctx, dupIDs); err != nil {
		report.Run = s.fail(ctx, run, err.Error())
		return report, err
	}
	if after, err := s.store.TableCounts(ctx); err == nil {
		report.After = after
	}
	report.Run, err = s.finish(ctx, run, taxonomy.RunSucceeded,
		fmt.Sprintf("deleted %d sub sentiments", stats.DeletedSubSentiments))
	return report, err
}

func (s *Service) verifyTaxonomy(ctx context.Context, dupIDs []int64) error {
	remaining, err := s.store.DuplicateTaxonomyGroups(ctx)
	if err != nil {
		return services.Wrap(services.ErrVerification, "canonical", "verify taxonomy", "query failed", err)
	}
	if remaining > 0 {
		return services.Wrap(services.ErrVerification, "canonical", "verify taxonomy",
			fmt.Sprintf("%d duplicate groups remain", remaining), nil)
	}
	dangling, err := s.store.DanglingReferences(ctx, dupIDs)
	if err != nil {
		return services.Wrap(services.ErrVerification, "canonical", "verify taxonomy", "dangling query failed", err)
	}
	if len(dangling) > 0 {
		parts := make([]string, 0, len(dangling))
		for table, n := range dangling {
			parts = append(parts, fmt.Sprintf("%s=%d", table, n))
		}
		return services.Wrap(services.ErrVerification, "canonical", "verify taxonomy",
			"dangling references: "+strings.Join(parts, ", "), nil)
	}
	return nil
}

// EnsureVerified fails while the latest real taxonomy pass, or the latest real
// DNA pass for profileID, ended in failure or never recorded an outcome. Dry
// runs are ignored.
func (s *Service) EnsureVerified(ctx context.Context, profileID int64) error {
	global, err := s.store.LatestCanonicalRun(ctx, taxonomy.PassTaxonomy, nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "canonical", "gate", "load taxonomy run", err)
	}
	if global != nil && global.Status.Blocking() {
		return services.Wrap(services.ErrVerification, "canonical", "gate",
			fmt.Sprintf("taxonomy pass %s %s: %s", global.RunID, global.Status, global.Detail), nil)
	}
	if profileID <= 0 {
		return nil
	}
	scoped, err := s.store.LatestCanonicalRun(ctx, taxonomy.PassProfileDNA, &profileID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "canonical", "gate", "load profile run", err)
	}
	if scoped != nil && scoped.Status.Blocking() {
		return services.Wrap(services.ErrVerification, "canonical", "gate",
			fmt.Sprintf("profile %d dna pass %s %s: %s", profileID, scoped.RunID, scoped.Status, scoped.Detail), nil)
	}
	return nil
}

func (s *Service) startRun(pass taxonomy.CanonicalPass, profileID *int64, dryRun bool) taxonomy.CanonicalRun {
	return taxonomy.CanonicalRun{
		RunID:     s.newRunID(),
		Pass:      pass,
		ProfileID: profileID,
		DryRun:    dryRun,
		StartedAt: s.now(),
	}
}

// markRunning records the run before storage is mutated. Until a later row
// records the outcome, the gate treats the pass as unverified.
func (s *Service) markRunning(ctx context.Context, run taxonomy.CanonicalRun) error {
	run.Status = taxonomy.RunRunning
	run.Detail = "apply started"
	run.FinishedAt = run.StartedAt
	if _, err := s.store.RecordCanonicalRun(ctx, run); err != nil {
		return services.Wrap(services.ErrTransient, "canonical", "record run", "mark running", err)
	}
	return nil
}

// fail records a failed outcome. A recording error is logged; the running
// row written by markRunning keeps the gate closed either way.
func (s *Service) fail(ctx context.Context, run taxonomy.CanonicalRun, detail string) taxonomy.CanonicalRun {
	recorded, err := s.finish(ctx, run, taxonomy.RunFailed, detail)
	if err != nil {
		logging.WithContext(ctx, s.logger).Error("record failed canonical run",
			logging.String("pass", string(run.Pass)),
			logging.String("detail", detail),
			logging.Error(err),
		)
	}
	return recorded
}

func (s *Service) finish(ctx context.Context, run taxonomy.CanonicalRun, status taxonomy.RunStatus, detail string) (taxonomy.CanonicalRun, error) {
	run.Status = status
	run.Detail = detail
	run.FinishedAt = s.now()
	recorded, err := s.store.RecordCanonicalRun(context.WithoutCancel(ctx), run)
	if err != nil {
		return run, services.Wrap(services.ErrTransient, "canonical", "record run", "", err)
	}
	level := slog.LevelInfo
	if status == taxonomy.RunFailed {
		level = slog.LevelError
	}
	logging.WithContext(ctx, s.logger).Log(ctx, level, "canonical pass finished",
		logging.String("pass", string(run.Pass)),
		logging.String("status", string(status)),
		logging.Int("planned_deletions", run.PlannedDeletions),
		logging.String("detail", detail),
	)
	return recorded, nil
}
