// Package association writes movie to concept relevance measurements.
//
// Merge is the pure never-regress rule. Writer validates untrusted input,
// enforces that the concept belongs to the requested MainSentiment, and hands
// the rule to a Store that applies it atomically per (movie, main, sub) triple.
// Writing never recomputes scores; that is a separate, batched step.
package association
