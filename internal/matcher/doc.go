// Package matcher resolves free-form concept labels against a scoped roster
// of SubSentiments.
//
// Match is pure: it reads only its arguments and the synonym table injected
// at construction. It returns one of three outcomes. Matched carries a roster
// entry owned by the requested scope. NoMatch carries the reason. ProposeNew
// carries a new-concept proposal that must be admitted by a separate,
// human-approved step before it becomes part of the taxonomy.
package matcher
