// Package seed loads taxonomy and journey-profile definitions from YAML and
// upserts them into the store.
//
// MainSentiments are keyed by name, SubSentiments by (name, owner), profiles
// by (label, lens) and DNA rows by (profile, concept). Re-applying the same
// file is a no-op apart from keyword and weight refreshes.
package seed
