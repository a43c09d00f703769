package testsupport

import (
	"context"
	"testing"

	"moodreel/internal/config"
	"moodreel/internal/store"
	"moodreel/internal/taxonomy"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MainSentiment ensures a MainSentiment named name exists.
func MainSentiment(t testing.TB, st *store.Store, name string) taxonomy.MainSentiment {
	t.Helper()

	main, err := st.EnsureMainSentiment(context.Background(), name)
	if err != nil {
		t.Fatalf("EnsureMainSentiment(%q): %v", name, err)
	}
	return main
}

// SubSentiment inserts a concept under mainID without deduplicating, so tests
// can build drifted taxonomies.
func SubSentiment(t testing.TB, st *store.Store, mainID int64, name string, keywords ...string) taxonomy.SubSentiment {
	t.Helper()

	sub, err := st.CreateSubSentiment(context.Background(), mainID, name, keywords)
	if err != nil {
		t.Fatalf("CreateSubSentiment(%q): %v", name, err)
	}
	return sub
}

// Movie inserts a movie with the given title and ratings.
func Movie(t testing.TB, st *store.Store, tmdbID int64, title string, rating float64) taxonomy.Movie {
	t.Helper()

	movie, err := st.UpsertMovie(context.Background(), taxonomy.Movie{
		TMDBID:      tmdbID,
		Title:       title,
		VoteAverage: rating,
		Synopsis:    title + " synopsis",
	})
	if err != nil {
		t.Fatalf("UpsertMovie(%q): %v", title, err)
	}
	return movie
}

// Profile creates a journey profile under mainID.
func Profile(t testing.TB, st *store.Store, mainID int64, label string) taxonomy.Profile {
	t.Helper()

	profile, err := st.CreateProfile(context.Background(), label, mainID)
	if err != nil {
		t.Fatalf("CreateProfile(%q): %v", label, err)
	}
	return profile
}

// DNA adds a DNA row to a profile.
func DNA(t testing.TB, st *store.Store, profileID, subID int64, weight float64) {
	t.Helper()

	if err := st.AddDNA(context.Background(), profileID, subID, weight); err != nil {
		t.Fatalf("AddDNA(%d, %d): %v", profileID, subID, err)
	}
}
