// Package taxonomy defines the curation data model: emotional concepts
// (MainSentiment, SubSentiment), journey profiles and their weighted DNA,
// movie Associations, materialized Suggestions, and pending concept
// proposals.
//
// The types carry no persistence or network behaviour; the store fills them
// and the matcher, association, scoring, and canonical packages compute over
// them in memory.
package taxonomy
