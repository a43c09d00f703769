package validation

import (
	"errors"
	"strings"
	"testing"

	"moodreel/internal/services"
)

type sample struct {
	Name      string  `json:"name" validate:"notblank"`
	Relevance float64 `json:"relevance" validate:"gte=0,lte=1"`
	Owner     int64   `json:"owner" validate:"gt=0"`
}

func TestStructAcceptsValid(t *testing.T) {
	if err := Struct(sample{Name: "medo", Relevance: 0.4, Owner: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	err := Struct(sample{Name: "   ", Relevance: 1.2})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Errors, got %T", err)
	}
	for _, field := range []string{"name", "relevance", "owner"} {
		if !verr.Has(field) {
			t.Fatalf("expected %s in %v", field, verr.Fields)
		}
	}
	if !strings.Contains(err.Error(), "relevance must be <= 1") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrorsMatchValidationMarker(t *testing.T) {
	err := Struct(sample{Relevance: -0.1, Owner: 1})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if services.NeedsOperator(err) {
		t.Fatal("validation failures must be safe to skip")
	}
}
