package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"moodreel/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "pt-BR"); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestGetMovieSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("append_to_response") != "keywords" || q.Get("language") != "pt-BR" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 603,
			"title": " Matrix ",
			"overview": "Um hacker descobre a verdade.",
			"release_date": "1999-03-30",
			"vote_average": 8.2,
			"genres": [{"id": 28, "name": "Ação"}, {"id": 878, "name": "Ficção científica"}],
			"keywords": {"keywords": [{"id": 1, "name": "simulação"}, {"id": 2, "name": " "}]}
		}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "pt-BR", tmdb.WithRateLimit(0))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	details, err := client.GetMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetMovie returned error: %v", err)
	}
	movie := details.Movie()
	if movie.TMDBID != 603 || movie.Title != "Matrix" || movie.Year != 1999 || movie.VoteAverage != 8.2 {
		t.Fatalf("unexpected movie %+v", movie)
	}
	if len(movie.Genres) != 2 || len(movie.Keywords) != 1 || movie.Keywords[0] != "simulação" {
		t.Fatalf("unexpected genres/keywords %+v", movie)
	}
}

func TestGetMovieNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.GetMovie(context.Background(), 1)
	var statusErr *tmdb.StatusError
	if !errors.As(err, &statusErr) || !statusErr.NotFound() {
		t.Fatalf("expected not-found status error, got %v", err)
	}
}

func TestGetMovieRejectsBadID(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.GetMovie(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-positive id")
	}
}

func TestGetMovieHonorsCancelledContext(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "", tmdb.WithRateLimit(0.001))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.GetMovie(ctx, 5); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
