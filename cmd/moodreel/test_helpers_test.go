package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	dataDir    string
	configPath string
	replayDir  string
	tmdb       *httptest.Server
}

const matrixJSON = `{
	"id": 603,
	"imdb_id": "tt0133093",
	"title": "Matrix",
	"overview": "Um hacker descobre que perdeu tudo o que conhecia.",
	"release_date": "1999-03-30",
	"vote_average": 8.2,
	"vote_count": 25000,
	"genres": [{"id": 28, "name": "Ação"}],
	"keywords": {"keywords": [{"id": 1, "name": "simulação"}]}
}`

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/603":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(matrixJSON))
		case "/configuration":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"images":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(tmdb.Close)

	env := &cliTestEnv{
		baseDir:    base,
		dataDir:    filepath.Join(base, "data"),
		configPath: filepath.Join(base, "moodreel.toml"),
		replayDir:  filepath.Join(base, "replay"),
		tmdb:       tmdb,
	}
	if err := os.MkdirAll(env.replayDir, 0o755); err != nil {
		t.Fatalf("mkdir replay: %v", err)
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q

[tmdb]
api_key = "test"
base_url = %q
requests_per_second = 0

[logging]
level = "error"
`, env.dataDir, env.tmdb.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (env *cliTestEnv) writeRecording(t *testing.T, movieID, profileID int64, matches string) {
	t.Helper()
	body := fmt.Sprintf(`{"movie_id": %d, "profile_id": %d, "recorded_at": "2026-01-01T00:00:00Z", "response": {"matches": %s}}`,
		movieID, profileID, matches)
	path := filepath.Join(env.replayDir, fmt.Sprintf("matches-movie-%d-profile-%d.json", movieID, profileID))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("moodreel %s: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
