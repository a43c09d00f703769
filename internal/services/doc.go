// Package services defines shared utilities consumed by the curation stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, movie IDs, profile IDs, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper. NeedsOperator separates
//     failures a person must investigate from ones the batch driver may skip
//     or retry.
//
// Use these helpers when wiring new stage logic so failure classification and
// log fields stay uniform across the pipeline.
package services
