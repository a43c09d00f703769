package matcher

import (
	"math"
	"testing"

	"moodreel/internal/taxonomy"
)

func sub(id, main int64, name string, keywords ...string) taxonomy.SubSentiment {
	return taxonomy.SubSentiment{ID: id, MainSentimentID: main, Name: name, Keywords: keywords}
}

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Angústia":            "angustia",
		"  Ação   Dramática ": "acao dramatica",
		"ÇÃO":                 "cao",
		"":                    "",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExactNameDominates(t *testing.T) {
	roster := taxonomy.Roster{
		sub(1, 1, "Tensão crescente", "angústia", "tensão"),
		sub(2, 1, "Angústia"),
	}
	m := New(nil)
	got := m.Match(Candidate{Label: "ANGUSTIA", Explanation: "tensão constante e angústia"}, 1, roster)
	if got.Kind != Matched || got.Entry.ID != 2 || got.Pass != PassExact {
		t.Fatalf("expected exact match on 2, got %+v", got)
	}
}

func TestScoreSumsAllSignals(t *testing.T) {
	m := New(nil)
	entry := sub(1, 1, "Tensão crescente", "angústia", "tensão")
	got := m.Score("angustia", "tensão constante e angústia", entry)
	if math.Abs(got-18) > 1e-9 {
		t.Fatalf("score = %v, want 18", got)
	}
}

func TestScoredPassPicksHighest(t *testing.T) {
	roster := taxonomy.Roster{sub(1, 1, "Solidão"), sub(2, 1, "Medo do desconhecido")}
	got := New(nil).Match(Candidate{Label: "medo"}, 1, roster)
	if got.Kind != Matched || got.Entry.ID != 2 || got.Pass != PassScored {
		t.Fatalf("expected scored match on 2, got %+v", got)
	}
	if math.Abs(got.Score-13) > 1e-9 {
		t.Fatalf("score = %v, want 13", got.Score)
	}
}

func TestTiesBrokenByRosterOrder(t *testing.T) {
	a, b := sub(3, 1, "Medo escuro"), sub(4, 1, "Medo frio")
	m := New(nil)
	if got := m.Match(Candidate{Label: "medo"}, 1, taxonomy.Roster{a, b}); got.Entry.ID != 3 {
		t.Fatalf("expected first entry, got %+v", got)
	}
	if got := m.Match(Candidate{Label: "medo"}, 1, taxonomy.Roster{b, a}); got.Entry.ID != 4 {
		t.Fatalf("expected first entry, got %+v", got)
	}
}

func TestPermissivePassAfterLowScore(t *testing.T) {
	roster := taxonomy.Roster{
		sub(1, 1, "Vazio existencial"),
		sub(2, 1, "Solidão em grandes cidades urbanas"),
	}
	got := New(nil).Match(Candidate{Label: "vida urbanas"}, 1, roster)
	if got.Kind != Matched || got.Entry.ID != 2 || got.Pass != PassPermissive {
		t.Fatalf("expected permissive match on 2, got %+v", got)
	}
	if got.Score >= DefaultAcceptScore {
		t.Fatalf("first pass should have scored below threshold, got %v", got.Score)
	}
}

func TestNoMatchAndProposal(t *testing.T) {
	roster := taxonomy.Roster{sub(1, 1, "Luto")}
	cand := Candidate{Label: "  Euforia Coletiva ", Explanation: "festa"}

	off := New(nil).Match(cand, 1, roster)
	if off.Kind != NoMatch || off.Reason != ReasonBelowAccept || off.Proposal != nil {
		t.Fatalf("expected plain no match, got %+v", off)
	}

	on := New(nil, WithProposals(true)).Match(cand, 1, roster)
	if on.Kind != ProposeNew || on.Proposal == nil {
		t.Fatalf("expected proposal, got %+v", on)
	}
	if on.Proposal.Name != "Euforia Coletiva" || on.Proposal.MainSentimentID != 1 {
		t.Fatalf("unexpected proposal %+v", on.Proposal)
	}
	if len(on.Proposal.Keywords) != 1 || on.Proposal.Keywords[0] != "euforia coletiva" {
		t.Fatalf("unexpected keywords %v", on.Proposal.Keywords)
	}
}

func TestScopeSafety(t *testing.T) {
	roster := taxonomy.Roster{sub(5, 2, "Medo"), sub(1, 1, "Pavor")}
	m := New(nil, WithProposals(false))

	got := m.Match(Candidate{Label: "Medo"}, 1, roster)
	if got.Kind == Matched && got.Entry.MainSentimentID != 1 {
		t.Fatalf("returned out-of-scope entry %+v", got.Entry)
	}
	if got.Kind != NoMatch {
		t.Fatalf("expected no match, got %+v", got)
	}

	for _, label := range []string{"Medo", "Pavor", "medo pavor", "pavoroso"} {
		for _, scope := range []int64{1, 2} {
			out := m.Match(Candidate{Label: label}, scope, roster)
			if out.Kind == Matched && out.Entry.MainSentimentID != scope {
				t.Fatalf("label %q scope %d returned %+v", label, scope, out.Entry)
			}
		}
	}
}

func TestHintedID(t *testing.T) {
	roster := taxonomy.Roster{sub(5, 2, "Medo"), sub(1, 1, "Pavor")}
	m := New(nil, WithProposals(true))

	hit := m.Match(Candidate{Label: "qualquer coisa", HintedID: 1}, 1, roster)
	if hit.Kind != Matched || hit.Entry.ID != 1 || hit.Pass != PassHint {
		t.Fatalf("expected hinted match, got %+v", hit)
	}
	mismatch := m.Match(Candidate{Label: "Medo", HintedID: 5}, 1, roster)
	if mismatch.Kind != NoMatch || mismatch.Reason != ReasonScopeMismatch {
		t.Fatalf("expected scope mismatch, got %+v", mismatch)
	}
	if mismatch.Proposal != nil {
		t.Fatalf("scope mismatch must not propose, got %+v", mismatch.Proposal)
	}
	unknown := m.Match(Candidate{Label: "Pavor", HintedID: 99}, 1, roster)
	if unknown.Kind != Matched || unknown.Entry.ID != 1 {
		t.Fatalf("unknown hint should fall through, got %+v", unknown)
	}
}

func TestForeignHintFallsBackToLabel(t *testing.T) {
	roster := taxonomy.Roster{
		sub(1, 1, "Angústia Existencial"),
		sub(2, 1, "Luto"),
		sub(3, 2, "Luto"),
	}
	m := New(nil, WithProposals(true))

	got := m.Match(Candidate{Label: "luto", HintedID: 3}, 1, roster)
	if got.Kind != Matched || got.Entry.ID != 2 || got.Pass != PassExact {
		t.Fatalf("expected in-scope exact match on 2, got %+v", got)
	}
	scored := m.Match(Candidate{Label: "angustia existencial profunda", HintedID: 3}, 1, roster)
	if scored.Kind != Matched || scored.Entry.ID != 1 {
		t.Fatalf("expected in-scope scored match on 1, got %+v", scored)
	}
	if got := m.Match(Candidate{Label: "Luto", HintedID: 2}, 7, roster); got.Kind != NoMatch || got.Reason != ReasonScopeMismatch {
		t.Fatalf("foreign hint with empty scope: %+v", got)
	}
}

func TestInjectedSynonymTable(t *testing.T) {
	roster := taxonomy.Roster{sub(1, 1, "Pavor")}
	cand := Candidate{Label: "medo intenso"}

	if got := New(nil).Match(cand, 1, roster); got.Kind != NoMatch {
		t.Fatalf("default table should not link medo and pavor, got %+v", got)
	}
	got := New(SynonymTable{"pavor": {"medo"}}).Match(cand, 1, roster)
	if got.Kind != Matched || got.Pass != PassScored || math.Abs(got.Score-5) > 1e-9 {
		t.Fatalf("expected synonym-linked match scoring 5, got %+v", got)
	}
}

func TestEmptySynonymTableUsesDefaults(t *testing.T) {
	roster := taxonomy.Roster{sub(1, 1, "Angústia")}
	cand := Candidate{Label: "ansiedade"}

	want := New(nil).Match(cand, 1, roster)
	got := New(SynonymTable{}).Match(cand, 1, roster)
	if got.Kind != want.Kind || got.Score != want.Score || got.Pass != want.Pass {
		t.Fatalf("empty table should behave like defaults: got %+v want %+v", got, want)
	}
	if got.Score == 0 {
		t.Fatalf("expected default synonyms to link ansiedade to angústia, got %+v", got)
	}
}

func TestEmptyInputs(t *testing.T) {
	m := New(nil, WithProposals(true))
	if got := m.Match(Candidate{Label: "   "}, 1, taxonomy.Roster{sub(1, 1, "Luto")}); got.Kind != NoMatch || got.Reason != ReasonEmptyLabel {
		t.Fatalf("blank label: %+v", got)
	}
	if got := m.Match(Candidate{Label: "Luto"}, 1, nil); got.Kind != ProposeNew || got.Reason != ReasonEmptyRoster {
		t.Fatalf("empty roster: %+v", got)
	}
}

func TestDefaultSynonymsCompileFolded(t *testing.T) {
	groups := DefaultSynonyms().compile()
	if len(groups) != 7 {
		t.Fatalf("expected 7 groups, got %d", len(groups))
	}
	if groups[0].stem != "angustia" || !groups[0].has("tensao") || !groups[0].has("angustia") {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
}
