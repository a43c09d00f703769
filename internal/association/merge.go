package association

import (
	"unicode/utf8"

	"moodreel/internal/taxonomy"
)

// Outcome reports what a write did to the stored row.
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
)

// MergeFunc decides the stored row given the current one (nil when absent).
type MergeFunc func(existing *taxonomy.Association, incoming taxonomy.Association) (taxonomy.Association, Outcome)

// Merge applies the never-regress rule. A missing row is created. An existing
// row takes the incoming relevance and explanation together only when the
// relevance is strictly greater or the explanation strictly longer (in runes).
func Merge(existing *taxonomy.Association, incoming taxonomy.Association) (taxonomy.Association, Outcome) {
	if existing == nil {
		return incoming, Created
	}
	higher := incoming.Relevance > existing.Relevance
	longer := utf8.RuneCountInString(incoming.Explanation) > utf8.RuneCountInString(existing.Explanation)
	if !higher && !longer {
		return *existing, Unchanged
	}
	merged := *existing
	merged.Relevance = incoming.Relevance
	merged.Explanation = incoming.Explanation
	return merged, Updated
}
