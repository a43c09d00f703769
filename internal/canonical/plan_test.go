package canonical

import (
	"reflect"
	"testing"

	"moodreel/internal/taxonomy"
)

func TestPlanProfileKeepsHighestWeight(t *testing.T) {
	rows := []taxonomy.DNARow{
		{ID: 1, SubSentimentID: 10, SubSentiment: "Solidão", Weight: 1.0},
		{ID: 2, SubSentimentID: 11, SubSentiment: "Solidão", Weight: 3.0},
		{ID: 3, SubSentimentID: 12, SubSentiment: "Solidão", Weight: 2.0},
		{ID: 4, SubSentimentID: 13, SubSentiment: "Luto", Weight: 1.0},
	}
	groups := PlanProfile(rows)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %+v", groups)
	}
	if groups[0].Keep.ID != 2 {
		t.Fatalf("expected row 2 kept, got %+v", groups[0].Keep)
	}
	if got := DeleteIDs(groups); !reflect.DeepEqual(got, []int64{3, 1}) {
		t.Fatalf("delete ids = %v", got)
	}
}

func TestPlanProfileTieBreaksOnLowestConceptID(t *testing.T) {
	rows := []taxonomy.DNARow{
		{ID: 1, SubSentimentID: 20, SubSentiment: "Luto", Weight: 2.0},
		{ID: 2, SubSentimentID: 15, SubSentiment: "Luto", Weight: 2.0},
	}
	groups := PlanProfile(rows)
	if len(groups) != 1 || groups[0].Keep.SubSentimentID != 15 {
		t.Fatalf("expected concept 15 kept, got %+v", groups)
	}
}

func TestPlanProfileCleanIsEmpty(t *testing.T) {
	rows := []taxonomy.DNARow{
		{ID: 1, SubSentimentID: 1, SubSentiment: "A", Weight: 1},
		{ID: 2, SubSentimentID: 2, SubSentiment: "B", Weight: 1},
	}
	if groups := PlanProfile(rows); len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}

func TestPlanTaxonomyGroupsByNameAndOwner(t *testing.T) {
	subs := []taxonomy.SubSentiment{
		{ID: 7, Name: "Solidão", MainSentimentID: 1},
		{ID: 3, Name: "Solidão", MainSentimentID: 1},
		{ID: 9, Name: "Solidão", MainSentimentID: 2},
		{ID: 5, Name: "Solidão", MainSentimentID: 1},
		{ID: 4, Name: "Luto", MainSentimentID: 1},
	}
	groups := PlanTaxonomy(subs)
	want := []taxonomy.MergeGroup{{Name: "Solidão", MainSentimentID: 1, SurvivorID: 3, DuplicateIDs: []int64{5, 7}}}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("groups = %+v, want %+v", groups, want)
	}
	if got := DuplicateIDs(groups); !reflect.DeepEqual(got, []int64{5, 7}) {
		t.Fatalf("duplicate ids = %v", got)
	}
}
