package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Database", statusError, "foreign keys disabled", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Database:", "[ERROR] foreign keys disabled")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("TMDB", statusOK, "Reachable", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green wrapped line, got %q", got)
	}
}

func TestShouldColorizeIgnoresBuffers(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers must not be colorized")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]column{col("Name"), numCol("Score")}, [][]string{{"Luto"}})
	requireContains(t, out, "Name")
	requireContains(t, out, "Luto")
	if renderTable(nil, nil) != "" {
		t.Fatal("expected empty output without columns")
	}
}
