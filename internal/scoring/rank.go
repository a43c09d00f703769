package scoring

import (
	"sort"

	"moodreel/internal/taxonomy"
)

// Rank orders a movie's scored suggestions by score descending, ties by id
// ascending, and returns rank by suggestion id starting at 1. Unscored
// suggestions are left out.
func Rank(suggestions []taxonomy.Suggestion) map[int64]int {
	scored := make([]taxonomy.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		if sg.RelevanceScore != nil {
			scored = append(scored, sg)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := *scored[i].RelevanceScore, *scored[j].RelevanceScore
		if a != b {
			return a > b
		}
		return scored[i].ID < scored[j].ID
	})
	ranks := make(map[int64]int, len(scored))
	for i, sg := range scored {
		ranks[sg.ID] = i + 1
	}
	return ranks
}
