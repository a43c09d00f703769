// Package scoring reduces a movie's associations against a profile's DNA to
// one ranking scalar in [0, 10].
//
// Score is pure. Recomputer persists scores for stored (movie, profile)
// suggestions, writes a narrative reason only when a score reaches the
// curation threshold, and re-ranks each touched movie's suggestions. It
// refuses to run while the taxonomy is unverified.
package scoring
