package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"moodreel/internal/association"
	"moodreel/internal/services"
	"moodreel/internal/store"
	"moodreel/internal/taxonomy"
	"moodreel/internal/testsupport"
)

type stubGate struct {
	err   error
	calls int
}

func (g *stubGate) EnsureVerified(context.Context, int64) error {
	g.calls++
	return g.err
}

type fixture struct {
	st      *store.Store
	movie   taxonomy.Movie
	profile taxonomy.Profile
	subs    []taxonomy.SubSentiment
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	main := testsupport.MainSentiment(t, st, "Triste")
	profile := testsupport.Profile(t, st, main.ID, "Chorar junto")
	var subs []taxonomy.SubSentiment
	for _, name := range []string{"A", "B", "C", "D"} {
		sub := testsupport.SubSentiment(t, st, main.ID, name)
		testsupport.DNA(t, st, profile.ID, sub.ID, 1)
		subs = append(subs, sub)
	}
	movie := testsupport.Movie(t, st, 30, "Aftersun", 7.7)
	if _, err := st.EnsureSuggestion(context.Background(), movie.ID, profile.ID); err != nil {
		t.Fatalf("EnsureSuggestion: %v", err)
	}
	return fixture{st: st, movie: movie, profile: profile, subs: subs}
}

func (f fixture) write(t *testing.T, idx int, relevance float64) {
	t.Helper()
	sub := f.subs[idx]
	_, _, err := f.st.MergeAssociation(context.Background(), taxonomy.Association{
		MovieID: f.movie.ID, MainSentimentID: sub.MainSentimentID, SubSentimentID: sub.ID,
		Relevance: relevance, Explanation: fmt.Sprintf("explanation %d", idx),
	}, association.Merge)
	if err != nil {
		t.Fatalf("MergeAssociation: %v", err)
	}
}

func TestRecomputePersistsScoreReasonAndRank(t *testing.T) {
	f := newFixture(t)
	f.write(t, 0, 0.9)
	f.write(t, 1, 0.8)
	f.write(t, 2, 0.95)

	calls := 0
	r := NewRecomputer(f.st, &stubGate{}, nil, WithReasons(func(_ context.Context, movieID, profileID int64, res Result) (string, error) {
		calls++
		return "ressoa com o luto", nil
	}))
	summary, err := r.Recompute(context.Background(), Request{ProfileID: f.profile.ID})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if summary.Evaluated != 1 || summary.ReasonsWritten != 1 || summary.MoviesRanked != 1 || calls != 1 {
		t.Fatalf("unexpected summary %+v calls=%d", summary, calls)
	}

	sg, _ := f.st.Suggestion(context.Background(), f.movie.ID, f.profile.ID)
	if sg.RelevanceScore == nil || *sg.RelevanceScore != 7.790 {
		t.Fatalf("score = %v", sg.RelevanceScore)
	}
	if sg.Reason != "ressoa com o luto" || sg.Rank == nil || *sg.Rank != 1 {
		t.Fatalf("unexpected suggestion %+v", sg)
	}
}

func TestRecomputeBelowThresholdKeepsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.st.SetSuggestionScore(ctx, f.movie.ID, f.profile.ID, 8); err != nil {
		t.Fatal(err)
	}
	if err := f.st.SetSuggestionReason(ctx, f.movie.ID, f.profile.ID, "motivo antigo"); err != nil {
		t.Fatal(err)
	}
	f.write(t, 0, 0.3)

	r := NewRecomputer(f.st, nil, nil, WithReasons(func(context.Context, int64, int64, Result) (string, error) {
		t.Fatal("reason must not be requested below threshold")
		return "", nil
	}))
	if _, err := r.Recompute(ctx, Request{}); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	sg, _ := f.st.Suggestion(ctx, f.movie.ID, f.profile.ID)
	if sg.RelevanceScore == nil || *sg.RelevanceScore >= DefaultCurationThreshold {
		t.Fatalf("expected low score, got %v", sg.RelevanceScore)
	}
	if sg.Reason != "motivo antigo" {
		t.Fatalf("reason overwritten: %q", sg.Reason)
	}
}

func TestRecomputeDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, 0, 0.9)

	summary, err := NewRecomputer(f.st, nil, nil).Recompute(context.Background(), Request{DryRun: true})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(summary.Changes) != 1 || summary.Changes[0].Result.Score == 0 {
		t.Fatalf("expected computed change, got %+v", summary)
	}
	sg, _ := f.st.Suggestion(context.Background(), f.movie.ID, f.profile.ID)
	if sg.RelevanceScore != nil {
		t.Fatalf("dry run persisted score %v", *sg.RelevanceScore)
	}
}

func TestRecomputeBlockedByGate(t *testing.T) {
	f := newFixture(t)
	gate := &stubGate{err: services.Wrap(services.ErrVerification, "canonical", "verify", "duplicates remain", nil)}

	_, err := NewRecomputer(f.st, gate, nil).Recompute(context.Background(), Request{})
	if !errors.Is(err, services.ErrVerification) || !services.NeedsOperator(err) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	sg, _ := f.st.Suggestion(context.Background(), f.movie.ID, f.profile.ID)
	if sg.RelevanceScore != nil {
		t.Fatal("blocked recompute must not write scores")
	}
}

func TestRecomputeBelowFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.st.SetSuggestionScore(ctx, f.movie.ID, f.profile.ID, 9); err != nil {
		t.Fatal(err)
	}
	below := 5.0
	summary, err := NewRecomputer(f.st, nil, nil).Recompute(ctx, Request{Below: &below})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if summary.Evaluated != 0 {
		t.Fatalf("expected filtered out, got %+v", summary)
	}
}
