package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"moodreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "curation", "suggest", "llm failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"curation", "suggest", "llm failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestNeedsOperator(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"verification", services.Wrap(services.ErrVerification, "canonical", "verify", "duplicates remain", nil), true},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "load", "bad", nil), true},
		{"transient", services.Wrap(services.ErrTransient, "store", "write", "busy", nil), false},
		{"external", services.Wrap(services.ErrExternalService, "tmdb", "details", "503", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "association", "write", "bad relevance", nil), false},
		{"unknown", fmt.Errorf("disk exploded"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.NeedsOperator(tc.err); got != tc.want {
				t.Fatalf("NeedsOperator(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
