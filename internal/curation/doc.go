// Package curation drives batch curation: for every pending (movie, profile)
// pair it asks the suggestion collaborator for candidate concepts, resolves
// them against the lens roster, persists the measurements through the
// association writer and finally recomputes the affected scores.
//
// Movies fan out across curation.workers goroutines. All matching and writes
// for one movie stay on one goroutine. Score recompute starts only after the
// whole batch has committed. Collaborator calls go through circuit breakers;
// once a breaker opens the remaining movies are reported as skipped.
//
// Movie intake (Intake) fetches TMDB attributes and opens pending suggestion
// rows for the requested profiles.
package curation
