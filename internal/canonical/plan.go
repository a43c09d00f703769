package canonical

import (
	"sort"

	"moodreel/internal/taxonomy"
)

// ProfileGroup is one concept name referenced by several DNA rows of a profile.
type ProfileGroup struct {
	Name   string
	Keep   taxonomy.DNARow
	Delete []taxonomy.DNARow
}

// PlanProfile groups a profile's DNA rows by concept name. For every group
// with more than one row the highest weight survives, ties going to the
// lowest SubSentiment id. Weights are never merged.
func PlanProfile(rows []taxonomy.DNARow) []ProfileGroup {
	byName := make(map[string][]taxonomy.DNARow)
	for _, row := range rows {
		byName[row.SubSentiment] = append(byName[row.SubSentiment], row)
	}
	var groups []ProfileGroup
	for name, members := range byName {
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].Weight != members[j].Weight {
				return members[i].Weight > members[j].Weight
			}
			if members[i].SubSentimentID != members[j].SubSentimentID {
				return members[i].SubSentimentID < members[j].SubSentimentID
			}
			return members[i].ID < members[j].ID
		})
		groups = append(groups, ProfileGroup{Name: name, Keep: members[0], Delete: members[1:]})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// DeleteIDs returns the DNA row ids a profile plan removes.
func DeleteIDs(groups []ProfileGroup) []int64 {
	var ids []int64
	for _, g := range groups {
		for _, row := range g.Delete {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

type taxonomyKey struct {
	name string
	main int64
}

// PlanTaxonomy groups SubSentiments by (name, owner). For every group with
// more than one row the lowest id survives. Groups are ordered by survivor id.
func PlanTaxonomy(subs []taxonomy.SubSentiment) []taxonomy.MergeGroup {
	byKey := make(map[taxonomyKey][]int64)
	for _, sub := range subs {
		key := taxonomyKey{name: sub.Name, main: sub.MainSentimentID}
		byKey[key] = append(byKey[key], sub.ID)
	}
	var groups []taxonomy.MergeGroup
	for key, ids := range byKey {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, taxonomy.MergeGroup{
			Name:            key.name,
			MainSentimentID: key.main,
			SurvivorID:      ids[0],
			DuplicateIDs:    append([]int64(nil), ids[1:]...),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].SurvivorID < groups[j].SurvivorID })
	return groups
}

// DuplicateIDs returns every non-survivor id across groups.
func DuplicateIDs(groups []taxonomy.MergeGroup) []int64 {
	var ids []int64
	for _, g := range groups {
		ids = append(ids, g.DuplicateIDs...)
	}
	return ids
}
