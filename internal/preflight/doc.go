// Package preflight provides readiness checks for the store and the external
// services moodreel depends on.
//
// The "moodreel health" command runs RunAll and prints every result; the
// curation driver runs the same checks before a batch and refuses to start
// when any required check fails. The LLM check is skipped when curation
// replays recorded responses.
package preflight
