// Package notifications delivers curation events to ntfy.
//
// When no topic is configured NewService returns a no-op notifier, so
// callers publish unconditionally. Per-event toggles in [notifications]
// silence individual event kinds.
package notifications
