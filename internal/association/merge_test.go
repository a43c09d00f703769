package association

import (
	"testing"

	"moodreel/internal/taxonomy"
)

func row(relevance float64, explanation string) taxonomy.Association {
	return taxonomy.Association{MovieID: 1, MainSentimentID: 2, SubSentimentID: 3, Relevance: relevance, Explanation: explanation}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing *taxonomy.Association
		incoming taxonomy.Association
		want     Outcome
		wantRel  float64
		wantExp  string
	}{
		{name: "create", existing: nil, incoming: row(0.4, "medo"), want: Created, wantRel: 0.4, wantExp: "medo"},
		{name: "higher relevance", existing: ptr(row(0.4, "medo")), incoming: row(0.7, "tens"), want: Updated, wantRel: 0.7, wantExp: "tens"},
		{name: "longer explanation", existing: ptr(row(0.8, "medo")), incoming: row(0.3, "medo forte"), want: Updated, wantRel: 0.3, wantExp: "medo forte"},
		{name: "lower and shorter", existing: ptr(row(0.8, "medo forte")), incoming: row(0.3, "medo"), want: Unchanged, wantRel: 0.8, wantExp: "medo forte"},
		{name: "identical", existing: ptr(row(0.5, "medo")), incoming: row(0.5, "medo"), want: Unchanged, wantRel: 0.5, wantExp: "medo"},
		{name: "rune length not bytes", existing: ptr(row(0.5, "abcd")), incoming: row(0.5, "ãéíõ"), want: Unchanged, wantRel: 0.5, wantExp: "abcd"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, outcome := Merge(tc.existing, tc.incoming)
			if outcome != tc.want {
				t.Fatalf("outcome = %s, want %s", outcome, tc.want)
			}
			if got.Relevance != tc.wantRel || got.Explanation != tc.wantExp {
				t.Fatalf("stored = (%v, %q), want (%v, %q)", got.Relevance, got.Explanation, tc.wantRel, tc.wantExp)
			}
		})
	}
}

func TestMergeIsOrderIndependentForRelevance(t *testing.T) {
	first, _ := Merge(nil, row(0.3, "same"))
	forward, _ := Merge(&first, row(0.9, "same"))

	second, _ := Merge(nil, row(0.9, "same"))
	backward, _ := Merge(&second, row(0.3, "same"))

	if forward.Relevance != 0.9 || backward.Relevance != 0.9 {
		t.Fatalf("expected 0.9 both ways, got %v and %v", forward.Relevance, backward.Relevance)
	}
}

func TestMergeKeepsIdentity(t *testing.T) {
	existing := row(0.2, "a")
	existing.ID = 42
	got, _ := Merge(&existing, row(0.9, "b"))
	if got.ID != 42 {
		t.Fatalf("expected id preserved, got %d", got.ID)
	}
}

func ptr(a taxonomy.Association) *taxonomy.Association { return &a }
