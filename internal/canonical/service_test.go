package canonical

import (
	"context"
	"errors"
	"testing"

	"moodreel/internal/association"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/taxonomy"
	"moodreel/internal/testsupport"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestDedupProfileCollapsesToMaxWeight(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	main := testsupport.MainSentiment(t, st, "Triste")
	a := testsupport.SubSentiment(t, st, main.ID, "Solidão")
	b := testsupport.SubSentiment(t, st, main.ID, "Solidão")
	c := testsupport.SubSentiment(t, st, main.ID, "Luto")
	profile := testsupport.Profile(t, st, main.ID, "Sozinho")
	testsupport.DNA(t, st, profile.ID, a.ID, 1.0)
	testsupport.DNA(t, st, profile.ID, b.ID, 4.0)
	testsupport.DNA(t, st, profile.ID, c.ID, 2.0)

	svc := NewService(st, nil)

	dry, err := svc.DedupProfile(ctx, profile.ID, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if dry.Run.Status != taxonomy.RunDryRun || dry.Run.PlannedDeletions != 1 {
		t.Fatalf("unexpected dry report %+v", dry.Run)
	}
	if rows, _ := st.ProfileDNA(ctx, profile.ID); len(rows) != 3 {
		t.Fatalf("dry run mutated storage: %+v", rows)
	}

	report, err := svc.DedupProfile(ctx, profile.ID, false)
	if err != nil {
		t.Fatalf("DedupProfile: %v", err)
	}
	if report.Deleted != 1 || report.Run.Status != taxonomy.RunSucceeded {
		t.Fatalf("unexpected report %+v", report)
	}
	rows, _ := st.ProfileDNA(ctx, profile.ID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	for _, row := range rows {
		if row.SubSentiment == "Solidão" && (row.SubSentimentID != b.ID || row.Weight != 4.0) {
			t.Fatalf("expected max-weight row kept, got %+v", row)
		}
	}

	again, err := svc.DedupProfile(ctx, profile.ID, false)
	if err != nil || again.Run.PlannedDeletions != 0 {
		t.Fatalf("fixed point violated: %+v %v", again.Run, err)
	}
}

func TestDedupProfileMissing(t *testing.T) {
	_, err := NewService(openStore(t), nil).DedupProfile(context.Background(), 404, false)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDedupTaxonomyRepointsDependents(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	main := testsupport.MainSentiment(t, st, "Medo")
	survivor := testsupport.SubSentiment(t, st, main.ID, "Vigilância")
	dup1 := testsupport.SubSentiment(t, st, main.ID, "Vigilância")
	dup2 := testsupport.SubSentiment(t, st, main.ID, "Vigilância")
	movie := testsupport.Movie(t, st, 40, "The Conversation", 7.8)
	profile := testsupport.Profile(t, st, main.ID, "Paranoia")
	testsupport.DNA(t, st, profile.ID, dup1.ID, 2)
	testsupport.DNA(t, st, profile.ID, dup2.ID, 3)
	for _, sub := range []taxonomy.SubSentiment{dup1, dup2} {
		if _, _, err := st.MergeAssociation(ctx, taxonomy.Association{
			MovieID: movie.ID, MainSentimentID: main.ID, SubSentimentID: sub.ID,
			Relevance: 0.5 + float64(sub.ID)/100, Explanation: "escuta",
		}, association.Merge); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(st, nil)
	report, err := svc.DedupTaxonomy(ctx, false)
	if err != nil {
		t.Fatalf("DedupTaxonomy: %v", err)
	}
	if report.Run.Status != taxonomy.RunSucceeded || report.Stats.DeletedSubSentiments != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Before.SubSentiments != 3 || report.After.SubSentiments != 1 {
		t.Fatalf("unexpected counts before=%+v after=%+v", report.Before, report.After)
	}

	assocs, _ := st.MovieAssociations(ctx, movie.ID)
	if len(assocs) != 1 || assocs[0].SubSentimentID != survivor.ID {
		t.Fatalf("associations not collapsed onto survivor: %+v", assocs)
	}
	dna, _ := st.ProfileDNA(ctx, profile.ID)
	if len(dna) != 1 || dna[0].SubSentimentID != survivor.ID {
		t.Fatalf("dna not collapsed onto survivor: %+v", dna)
	}
	if err := svc.EnsureVerified(ctx, profile.ID); err != nil {
		t.Fatalf("gate should pass after success: %v", err)
	}

	again, err := svc.DedupTaxonomy(ctx, false)
	if err != nil || again.Run.PlannedDeletions != 0 {
		t.Fatalf("fixed point violated: %+v %v", again.Run, err)
	}
}

// leakyStore reports duplicates after a merge to simulate a failed verification.
type leakyStore struct {
	*store.Store
}

func (leakyStore) DuplicateTaxonomyGroups(context.Context) (int, error) { return 1, nil }

func TestVerificationFailureBlocksGate(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	svc := NewService(leakyStore{st}, nil)

	_, err := svc.DedupTaxonomy(ctx, false)
	if !errors.Is(err, services.ErrVerification) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	if !services.NeedsOperator(err) {
		t.Fatal("verification failure must need an operator")
	}
	if err := svc.EnsureVerified(ctx, 1); !errors.Is(err, services.ErrVerification) {
		t.Fatalf("gate should block, got %v", err)
	}

	// A dry run does not clear the gate.
	if _, err := NewService(st, nil).DedupTaxonomy(ctx, true); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if err := svc.EnsureVerified(ctx, 1); err == nil {
		t.Fatal("dry run must not clear the gate")
	}

	// A real successful pass does.
	if _, err := NewService(st, nil).DedupTaxonomy(ctx, false); err != nil {
		t.Fatalf("repair run: %v", err)
	}
	if err := svc.EnsureVerified(ctx, 1); err != nil {
		t.Fatalf("gate should pass after repair: %v", err)
	}
}

// unrecordedStore loses failure rows, as when the run log write itself fails.
type unrecordedStore struct {
	leakyStore
	rejected taxonomy.RunStatus
}

func (s unrecordedStore) RecordCanonicalRun(ctx context.Context, run taxonomy.CanonicalRun) (taxonomy.CanonicalRun, error) {
	if run.Status == s.rejected {
		return taxonomy.CanonicalRun{}, errors.New("disk I/O error")
	}
	return s.leakyStore.RecordCanonicalRun(ctx, run)
}

func (s unrecordedStore) DuplicateProfileGroups(context.Context, int64) (int, error) { return 1, nil }

func TestUnrecordedFailureKeepsGateClosed(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	main := testsupport.MainSentiment(t, st, "Medo")
	profile := testsupport.Profile(t, st, main.ID, "Paranoia")

	// Earlier successful passes must not mask the failure below.
	if _, err := NewService(st, nil).DedupTaxonomy(ctx, false); err != nil {
		t.Fatalf("baseline taxonomy pass: %v", err)
	}
	if _, err := NewService(st, nil).DedupProfile(ctx, profile.ID, false); err != nil {
		t.Fatalf("baseline profile pass: %v", err)
	}

	svc := NewService(unrecordedStore{leakyStore: leakyStore{st}, rejected: taxonomy.RunFailed}, nil)
	if _, err := svc.DedupTaxonomy(ctx, false); !errors.Is(err, services.ErrVerification) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	latest, err := st.LatestCanonicalRun(ctx, taxonomy.PassTaxonomy, nil)
	if err != nil || latest == nil || latest.Status != taxonomy.RunRunning {
		t.Fatalf("expected running row to remain, got %+v %v", latest, err)
	}
	if err := NewService(st, nil).EnsureVerified(ctx, 0); !errors.Is(err, services.ErrVerification) {
		t.Fatalf("taxonomy gate should block, got %v", err)
	}

	if _, err := NewService(st, nil).DedupTaxonomy(ctx, false); err != nil {
		t.Fatalf("repair run: %v", err)
	}
	if _, err := svc.DedupProfile(ctx, profile.ID, false); !errors.Is(err, services.ErrVerification) {
		t.Fatalf("expected profile verification failure, got %v", err)
	}
	if err := NewService(st, nil).EnsureVerified(ctx, profile.ID); !errors.Is(err, services.ErrVerification) {
		t.Fatalf("profile gate should block, got %v", err)
	}
}

func TestUnrecordedStartAbortsBeforeMerge(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	main := testsupport.MainSentiment(t, st, "Medo")
	testsupport.SubSentiment(t, st, main.ID, "Vigilância")
	testsupport.SubSentiment(t, st, main.ID, "Vigilância")

	svc := NewService(unrecordedStore{leakyStore: leakyStore{st}, rejected: taxonomy.RunRunning}, nil)
	if _, err := svc.DedupTaxonomy(ctx, false); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	subs, err := st.AllSubSentiments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Fatalf("merge ran without a recorded start: %d sub sentiments", len(subs))
	}
}
