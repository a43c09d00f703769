// Package maintenance serializes curation against canonicalization with a
// file lock. Curation and score recompute hold the lock shared, so several
// may run at once; canonicalization holds it exclusively.
package maintenance
