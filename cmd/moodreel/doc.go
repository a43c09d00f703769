// Package main hosts the moodreel CLI entrypoint and command graph.
//
// The Cobra command tree seeds the taxonomy, adds movies from TMDB, runs the
// curation batch, recomputes relevance scores, drives the canonicalization
// passes and walks the proposal review queue. Configuration resolution, the
// maintenance lock, logging and store access are centralized in
// commandContext so subcommands only describe flags and output.
//
// Add behavior to the internal packages first and surface it here.
package main
