package association

import (
	"context"
	"errors"
	"testing"

	"moodreel/internal/services"
	"moodreel/internal/taxonomy"
)

type memoryStore struct {
	rows  map[taxonomy.AssociationKey]taxonomy.Association
	fail  error
	calls int
}

func (m *memoryStore) MergeAssociation(_ context.Context, incoming taxonomy.Association, merge MergeFunc) (taxonomy.Association, Outcome, error) {
	m.calls++
	if m.fail != nil {
		return taxonomy.Association{}, "", m.fail
	}
	if m.rows == nil {
		m.rows = make(map[taxonomy.AssociationKey]taxonomy.Association)
	}
	var existing *taxonomy.Association
	if current, ok := m.rows[incoming.Key()]; ok {
		existing = &current
	}
	stored, outcome := merge(existing, incoming)
	m.rows[incoming.Key()] = stored
	return stored, outcome, nil
}

func input(relevance float64, explanation string) Input {
	return Input{
		MovieID:         7,
		MainSentimentID: 1,
		SubSentiment:    taxonomy.SubSentiment{ID: 11, Name: "Angústia", MainSentimentID: 1},
		Relevance:       relevance,
		Explanation:     explanation,
	}
}

func TestWriterIdempotentOnIdenticalWrite(t *testing.T) {
	store := &memoryStore{}
	w := NewWriter(store, nil)
	ctx := context.Background()

	first, err := w.Write(ctx, input(0.6, "tensão constante"))
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if first.Outcome != Created {
		t.Fatalf("expected created, got %s", first.Outcome)
	}
	second, err := w.Write(ctx, input(0.6, "tensão constante"))
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if second.Outcome != Unchanged {
		t.Fatalf("expected unchanged, got %s", second.Outcome)
	}
	if second.Association != first.Association {
		t.Fatalf("row changed: %+v vs %+v", second.Association, first.Association)
	}
}

func TestWriterRejectsInvalidInput(t *testing.T) {
	store := &memoryStore{}
	w := NewWriter(store, nil)

	cases := map[string]Input{
		"relevance above one":  input(1.2, "x"),
		"negative relevance":   input(-0.1, "x"),
		"blank explanation":    input(0.5, "   "),
		"unresolved concept":   {MovieID: 7, MainSentimentID: 1, Relevance: 0.5, Explanation: "x"},
		"scope mismatch owner": {MovieID: 7, MainSentimentID: 2, SubSentiment: taxonomy.SubSentiment{ID: 11, MainSentimentID: 1}, Relevance: 0.5, Explanation: "x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.Write(context.Background(), in)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
	if store.calls != 0 {
		t.Fatalf("store should not be touched, got %d calls", store.calls)
	}
}

func TestWriterSurfacesStoreFailure(t *testing.T) {
	store := &memoryStore{fail: errors.New("disk full")}
	_, err := NewWriter(store, nil).Write(context.Background(), input(0.5, "x"))
	if err == nil || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
