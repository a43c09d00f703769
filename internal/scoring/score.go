package scoring

import (
	"math"
	"sort"

	"moodreel/internal/taxonomy"
)

const (
	// MaxScore caps every final score.
	MaxScore = 10.0
	// DefaultCurationThreshold is the score a suggestion must reach before a
	// reason is persisted.
	DefaultCurationThreshold = 5.5
)

// Terminal explains a defined zero score.
type Terminal string

const (
	TerminalNone       Terminal = ""
	TerminalNoExpected Terminal = "no_expected_concepts"
	TerminalNoMatches  Terminal = "no_matched_concepts"
)

type bonusTier struct {
	coverage float64
	bonus    float64
}

// Highest qualifying tier only.
var bonusTiers = []bonusTier{
	{coverage: 0.75, bonus: 0.6},
	{coverage: 0.65, bonus: 0.4},
	{coverage: 0.50, bonus: 0.2},
}

// Result holds the final score and the intermediate terms behind it.
type Result struct {
	Score         float64
	Average       float64
	Intensity     float64
	CoverageRatio float64
	CoverageTerm  float64
	Raw           float64
	Bonus         float64
	MatchCount    int
	TotalExpected int
	Matched       map[string]float64
	Terminal      Terminal
}

// Score computes the ranking scalar of assocs against dna. Associations are
// matched to DNA rows by concept name; per name, the highest relevance counts.
func Score(dna []taxonomy.DNARow, assocs []taxonomy.Association) Result {
	expected := make(map[string]struct{}, len(dna))
	for _, row := range dna {
		expected[row.SubSentiment] = struct{}{}
	}
	res := Result{TotalExpected: len(expected)}
	if res.TotalExpected == 0 {
		res.Terminal = TerminalNoExpected
		return res
	}

	matched := make(map[string]float64)
	for _, a := range assocs {
		if _, ok := expected[a.SubSentiment]; !ok {
			continue
		}
		if current, seen := matched[a.SubSentiment]; !seen || a.Relevance > current {
			matched[a.SubSentiment] = a.Relevance
		}
	}
	res.MatchCount = len(matched)
	if res.MatchCount == 0 {
		res.Terminal = TerminalNoMatches
		return res
	}
	res.Matched = matched

	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)
	var sum float64
	for _, name := range names {
		sum += matched[name]
	}
	res.Average = sum / float64(res.MatchCount)
	res.Intensity = math.Pow(res.Average, 1.5) * 10
	res.CoverageRatio = float64(res.MatchCount) / float64(res.TotalExpected)
	res.CoverageTerm = math.Sqrt(res.CoverageRatio)
	res.Raw = res.Intensity * res.CoverageTerm
	for _, tier := range bonusTiers {
		if res.CoverageRatio >= tier.coverage {
			res.Bonus = tier.bonus
			break
		}
	}
	res.Score = round3(math.Min(res.Raw+res.Bonus, MaxScore))
	return res
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
