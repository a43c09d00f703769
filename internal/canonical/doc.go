// Package canonical repairs taxonomy drift.
//
// PlanProfile and PlanTaxonomy are pure and decide survivors. Service runs a
// pass against the store, verifies that no duplicate groups remain, and
// records every attempt in the canonical run log. A running row is written
// before storage is touched, so a pass whose outcome was never recorded stays
// visible. A failed verification is an ErrVerification error and keeps
// EnsureVerified failing until a later pass succeeds, which blocks score
// recompute against an unverified taxonomy.
package canonical
