package scoring

import (
	"math"
	"testing"

	"moodreel/internal/taxonomy"
)

func dnaRows(names ...string) []taxonomy.DNARow {
	rows := make([]taxonomy.DNARow, 0, len(names))
	for i, name := range names {
		rows = append(rows, taxonomy.DNARow{ID: int64(i + 1), SubSentimentID: int64(i + 1), SubSentiment: name, Weight: 1})
	}
	return rows
}

func assocRow(name string, relevance float64) taxonomy.Association {
	return taxonomy.Association{SubSentiment: name, Relevance: relevance}
}

func TestScoreWorkedExample(t *testing.T) {
	res := Score(dnaRows("A", "B", "C", "D"), []taxonomy.Association{
		assocRow("A", 0.9), assocRow("B", 0.8), assocRow("C", 0.95),
	})
	if res.TotalExpected != 4 || res.MatchCount != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if math.Abs(res.Average-0.88333) > 1e-4 {
		t.Fatalf("average = %v", res.Average)
	}
	if math.Abs(res.Intensity-8.302) > 1e-3 {
		t.Fatalf("intensity = %v", res.Intensity)
	}
	if res.CoverageRatio != 0.75 || res.Bonus != 0.6 {
		t.Fatalf("coverage/bonus = %v/%v", res.CoverageRatio, res.Bonus)
	}
	if res.Score != 7.790 {
		t.Fatalf("score = %v, want 7.790", res.Score)
	}
}

func TestScoreTerminalZeroes(t *testing.T) {
	empty := Score(nil, []taxonomy.Association{assocRow("A", 1)})
	if empty.Score != 0 || empty.Terminal != TerminalNoExpected {
		t.Fatalf("empty dna: %+v", empty)
	}
	none := Score(dnaRows("A"), []taxonomy.Association{assocRow("Z", 1)})
	if none.Score != 0 || none.Terminal != TerminalNoMatches {
		t.Fatalf("no matches: %+v", none)
	}
}

func TestScoreDuplicatesCollapseToMax(t *testing.T) {
	dna := append(dnaRows("A", "B"), taxonomy.DNARow{ID: 9, SubSentimentID: 9, SubSentiment: "A", Weight: 2})
	res := Score(dna, []taxonomy.Association{assocRow("A", 0.2), assocRow("A", 0.7)})
	if res.TotalExpected != 2 || res.MatchCount != 1 || res.Average != 0.7 {
		t.Fatalf("unexpected collapse %+v", res)
	}
}

func TestScoreBonusTiers(t *testing.T) {
	tests := []struct {
		matched, expected int
		bonus             float64
	}{
		{matched: 4, expected: 4, bonus: 0.6},
		{matched: 3, expected: 4, bonus: 0.6},
		{matched: 2, expected: 3, bonus: 0.4},
		{matched: 1, expected: 2, bonus: 0.2},
		{matched: 1, expected: 3, bonus: 0},
	}
	for _, tc := range tests {
		names := make([]string, tc.expected)
		var assocs []taxonomy.Association
		for i := range names {
			names[i] = string(rune('A' + i))
			if i < tc.matched {
				assocs = append(assocs, assocRow(names[i], 0.5))
			}
		}
		res := Score(dnaRows(names...), assocs)
		if res.Bonus != tc.bonus {
			t.Errorf("%d/%d: bonus = %v, want %v", tc.matched, tc.expected, res.Bonus, tc.bonus)
		}
	}
}

func TestScoreBoundedAndCapped(t *testing.T) {
	full := Score(dnaRows("A"), []taxonomy.Association{assocRow("A", 1)})
	if full.Score != MaxScore {
		t.Fatalf("expected cap at 10, got %v (raw %v bonus %v)", full.Score, full.Raw, full.Bonus)
	}
	for r := 0.0; r <= 1.0; r += 0.05 {
		for _, cov := range [][]string{{"A"}, {"A", "B"}, {"A", "B", "C"}} {
			res := Score(dnaRows("A", "B", "C"), func() []taxonomy.Association {
				out := make([]taxonomy.Association, 0, len(cov))
				for _, n := range cov {
					out = append(out, assocRow(n, r))
				}
				return out
			}())
			if res.Score < 0 || res.Score > MaxScore {
				t.Fatalf("score out of range: %v", res.Score)
			}
		}
	}
}

func TestScoreMonotonicInRelevance(t *testing.T) {
	dna := dnaRows("A", "B", "C", "D")
	prev := -1.0
	for r := 0.0; r <= 1.0001; r += 0.01 {
		res := Score(dna, []taxonomy.Association{assocRow("A", 0.5), assocRow("B", r)})
		if res.Score < prev {
			t.Fatalf("score decreased at r=%v: %v < %v", r, res.Score, prev)
		}
		prev = res.Score
	}
}

func TestRank(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	ranks := Rank([]taxonomy.Suggestion{
		{ID: 3, RelevanceScore: f(6.1)},
		{ID: 1, RelevanceScore: f(7.2)},
		{ID: 2, RelevanceScore: f(6.1)},
		{ID: 4},
	})
	want := map[int64]int{1: 1, 2: 2, 3: 3}
	if len(ranks) != len(want) {
		t.Fatalf("ranks = %v", ranks)
	}
	for id, rank := range want {
		if ranks[id] != rank {
			t.Fatalf("rank of %d = %d, want %d (all %v)", id, ranks[id], rank, ranks)
		}
	}
}
