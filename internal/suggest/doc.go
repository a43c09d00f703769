// Package suggest talks to the text-generation collaborator.
//
// The collaborator only emits candidate tuples and narrative reasons. Every
// field it returns is untrusted: Sanitize validates tuples and drops the
// malformed ones without failing the batch. Recorder and Replayer persist and
// replay candidate sets so curation can be re-run deterministically.
package suggest
