package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moodreel/internal/config"
	"moodreel/internal/store"
	"moodreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTMDB_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/configuration" || r.URL.Query().Get("api_key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckTMDB(context.Background(), srv.URL, "good-key")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckTMDB_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckTMDB(context.Background(), srv.URL, "bad-key")
	if result.Passed || !strings.Contains(result.Detail, "invalid api key") {
		t.Fatalf("expected auth failure, got %+v", result)
	}
}

func TestCheckTMDB_MissingKey(t *testing.T) {
	result := CheckTMDB(context.Background(), "http://localhost", "")
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	result := CheckStore(context.Background(), st)
	if !result.Passed {
		t.Fatalf("expected healthy store, got: %s", result.Detail)
	}
}

type brokenStore struct{}

func (brokenStore) CheckHealth(context.Context) (store.HealthReport, error) {
	return store.HealthReport{}, errors.New("disk I/O error")
}

type staleStore struct{}

func (staleStore) CheckHealth(context.Context) (store.HealthReport, error) {
	return store.HealthReport{SchemaVersion: 1, ExpectedSchema: 2, IntegrityCheck: "ok", ForeignKeys: true}, nil
}

func TestCheckStoreFailures(t *testing.T) {
	if r := CheckStore(context.Background(), brokenStore{}); r.Passed {
		t.Fatal("expected failure for read error")
	}
	if r := CheckStore(context.Background(), staleStore{}); r.Passed || !strings.Contains(r.Detail, "expected 2") {
		t.Fatalf("expected schema mismatch, got %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_SkipsCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	st := testsupport.MustOpenStore(t, cfg)

	results := RunAll(context.Background(), cfg, st, Options{SkipLLM: true, SkipTMDB: true})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_IncludesTMDB(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithTMDBBaseURL(srv.URL))
	results := RunAll(context.Background(), cfg, nil, Options{SkipLLM: true})
	found := false
	for _, r := range results {
		if r.Name == "TMDB" {
			found = true
			if !r.Passed {
				t.Errorf("TMDB check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected TMDB check in results")
	}
}
