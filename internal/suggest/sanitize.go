package suggest

import (
	"sort"
	"strings"

	"moodreel/internal/validation"
)

// Drop reasons.
const (
	DropInvalid    = "invalid"
	DropBelowFloor = "below_floor"
	DropOverLimit  = "over_limit"
)

// Tuple is a validated candidate ready for the matcher.
type Tuple struct {
	Label       string
	Relevance   float64
	Explanation string
	HintedID    int64
	Official    bool
}

// Dropped records a tuple that was discarded and why.
type Dropped struct {
	Index  int
	Label  string
	Reason string
	Detail string
}

// Sanitize validates raw tuples. Malformed tuples and tuples below floor are
// dropped; the rest are ordered by relevance (stable) and capped at
// maxMatches when it is positive.
func Sanitize(raw []RawMatch, floor float64, maxMatches int) ([]Tuple, []Dropped) {
	var (
		kept    []Tuple
		dropped []Dropped
	)
	for i, m := range raw {
		if err := validation.Struct(m); err != nil {
			dropped = append(dropped, Dropped{Index: i, Label: m.Name, Reason: DropInvalid, Detail: err.Error()})
			continue
		}
		if *m.Relevance < floor {
			dropped = append(dropped, Dropped{Index: i, Label: m.Name, Reason: DropBelowFloor})
			continue
		}
		kept = append(kept, Tuple{
			Label:       strings.TrimSpace(m.Name),
			Relevance:   *m.Relevance,
			Explanation: strings.TrimSpace(m.Explanation),
			HintedID:    max(m.ID, 0),
			Official:    strings.EqualFold(strings.TrimSpace(m.Type), TypeOfficial),
		})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Relevance > kept[j].Relevance })
	if maxMatches > 0 && len(kept) > maxMatches {
		for _, t := range kept[maxMatches:] {
			dropped = append(dropped, Dropped{Index: -1, Label: t.Label, Reason: DropOverLimit})
		}
		kept = kept[:maxMatches]
	}
	return kept, dropped
}
