package matcher

import (
	"strings"

	"moodreel/internal/taxonomy"
)

// DefaultAcceptScore is the minimum first-pass score for a match.
const DefaultAcceptScore = 3.0

const (
	exactNameScore       = 50.0
	containmentScore     = 8.0
	tokenOverlapScale    = 10.0
	keywordScore         = 3.0
	keywordSynonymScore  = 2.0
	explanationScore     = 2.0
	explanationSynonym   = 1.0
	nameTokenMinRunes    = 2
	permissiveTokenRunes = 3
)

// Kind classifies a match outcome.
type Kind string

const (
	Matched    Kind = "matched"
	NoMatch    Kind = "no_match"
	ProposeNew Kind = "propose_new"
)

// Pass names the rule that produced a match.
type Pass string

const (
	PassHint       Pass = "hint"
	PassExact      Pass = "exact"
	PassScored     Pass = "scored"
	PassPermissive Pass = "permissive"
)

// Reasons reported with NoMatch and ProposeNew outcomes.
const (
	ReasonEmptyLabel    = "empty_label"
	ReasonEmptyRoster   = "empty_roster"
	ReasonScopeMismatch = "scope_mismatch"
	ReasonBelowAccept   = "below_threshold"
)

// Candidate is one untrusted concept suggestion.
type Candidate struct {
	Label       string
	Explanation string
	// HintedID is an optional SubSentiment id echoed by the collaborator.
	HintedID int64
}

// Proposal is a new concept suggested when nothing in scope matches.
type Proposal struct {
	Name            string
	Keywords        []string
	MainSentimentID int64
}

// Outcome is the result of Match.
type Outcome struct {
	Kind     Kind
	Entry    taxonomy.SubSentiment
	Pass     Pass
	Score    float64
	Reason   string
	Proposal *Proposal
}

// Option customizes a Matcher.
type Option func(*Matcher)

// WithAcceptThreshold sets the minimum first-pass score.
func WithAcceptThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.accept = threshold
		}
	}
}

// WithProposals enables the ProposeNew outcome.
func WithProposals(enabled bool) Option {
	return func(m *Matcher) {
		m.propose = enabled
	}
}

// Matcher scores labels against rosters. It is immutable after New and safe
// for concurrent use.
type Matcher struct {
	groups  []synonymGroup
	accept  float64
	propose bool
}

// New builds a Matcher around an immutable copy of table. A nil or empty
// table uses DefaultSynonyms.
func New(table SynonymTable, opts ...Option) *Matcher {
	if len(table) == 0 {
		table = DefaultSynonyms()
	}
	m := &Matcher{groups: table.compile(), accept: DefaultAcceptScore}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcceptThreshold returns the first-pass acceptance score.
func (m *Matcher) AcceptThreshold() float64 { return m.accept }

// Match resolves c against the entries of roster owned by scope. Roster order
// breaks ties; callers pass it in ascending id order. Entries owned by another
// MainSentiment are never returned.
func (m *Matcher) Match(c Candidate, scope int64, roster taxonomy.Roster) Outcome {
	label := Fold(c.Label)
	if label == "" {
		return Outcome{Kind: NoMatch, Reason: ReasonEmptyLabel}
	}
	scoped := roster.Scoped(scope)

	// A hint owned by another MainSentiment is discarded and the label is
	// still matched in scope.
	foreignHint := false
	if c.HintedID > 0 {
		if entry, ok := scoped.ByID(c.HintedID); ok {
			return Outcome{Kind: Matched, Entry: entry, Pass: PassHint}
		}
		_, foreignHint = roster.ByID(c.HintedID)
	}

	if len(scoped) == 0 {
		if foreignHint {
			return Outcome{Kind: NoMatch, Reason: ReasonScopeMismatch}
		}
		return m.fallback(c, scope, ReasonEmptyRoster, 0)
	}

	for _, entry := range scoped {
		if Fold(entry.Name) == label {
			return Outcome{Kind: Matched, Entry: entry, Pass: PassExact, Score: m.score(label, Fold(c.Explanation), entry)}
		}
	}

	explanation := Fold(c.Explanation)
	var (
		best      taxonomy.SubSentiment
		bestScore float64
		found     bool
	)
	for _, entry := range scoped {
		if s := m.score(label, explanation, entry); s > bestScore {
			best, bestScore, found = entry, s, true
		}
	}
	if found && bestScore >= m.accept {
		return Outcome{Kind: Matched, Entry: best, Pass: PassScored, Score: bestScore}
	}

	if entry, ok := permissive(label, scoped); ok {
		return Outcome{Kind: Matched, Entry: entry, Pass: PassPermissive, Score: bestScore}
	}
	if foreignHint {
		return Outcome{Kind: NoMatch, Reason: ReasonScopeMismatch, Score: bestScore}
	}
	return m.fallback(c, scope, ReasonBelowAccept, bestScore)
}

func (m *Matcher) fallback(c Candidate, scope int64, reason string, score float64) Outcome {
	if !m.propose {
		return Outcome{Kind: NoMatch, Reason: reason, Score: score}
	}
	name := strings.TrimSpace(c.Label)
	return Outcome{
		Kind:   ProposeNew,
		Reason: reason,
		Score:  score,
		Proposal: &Proposal{
			Name:            name,
			Keywords:        []string{strings.ToLower(name)},
			MainSentimentID: scope,
		},
	}
}

// Score returns S(label, entry) using folded inputs.
func (m *Matcher) Score(label, explanation string, entry taxonomy.SubSentiment) float64 {
	return m.score(Fold(label), Fold(explanation), entry)
}

func (m *Matcher) score(label, explanation string, entry taxonomy.SubSentiment) float64 {
	name := Fold(entry.Name)
	if name == "" {
		return 0
	}
	var total float64

	if label == name {
		total += exactNameScore
	}
	if strings.Contains(label, name) || strings.Contains(name, label) {
		total += containmentScore
	}

	nameTokens := tokens(name, nameTokenMinRunes)
	labelTokens := tokens(label, nameTokenMinRunes)
	if len(nameTokens) > 0 {
		var common int
		for _, rt := range nameTokens {
			if tokenMatches(rt, labelTokens) || m.synonymLinked(rt, labelTokens) {
				common++
			}
		}
		total += float64(common) / float64(max(len(nameTokens), len(labelTokens))) * tokenOverlapScale
	}

	text := label + " " + explanation
	for _, keyword := range entry.Keywords {
		kw := Fold(keyword)
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			total += keywordScore
		}
		if m.synonymInText(kw, text) {
			total += keywordSynonymScore
		}
	}

	if explanation != "" {
		for _, rt := range nameTokens {
			if strings.Contains(explanation, rt) {
				total += explanationScore
			}
			if m.synonymInText(rt, explanation) {
				total += explanationSynonym
			}
		}
	}
	return total
}

func tokenMatches(rt string, labelTokens []string) bool {
	for _, lt := range labelTokens {
		if lt == rt || strings.Contains(lt, rt) || strings.Contains(rt, lt) {
			return true
		}
	}
	return false
}

// synonymLinked reports whether word and some label token share a group.
func (m *Matcher) synonymLinked(word string, labelTokens []string) bool {
	for _, g := range m.groups {
		if !g.has(word) {
			continue
		}
		for _, lt := range labelTokens {
			if g.has(lt) {
				return true
			}
		}
	}
	return false
}

// synonymInText reports whether word belongs to a group with a member found in text.
func (m *Matcher) synonymInText(word, text string) bool {
	for _, g := range m.groups {
		if !g.has(word) {
			continue
		}
		for _, member := range g.members {
			if strings.Contains(text, member) {
				return true
			}
		}
	}
	return false
}

// permissive accepts the first entry whose name or keywords contain any label
// token longer than three runes.
func permissive(label string, scoped taxonomy.Roster) (taxonomy.SubSentiment, bool) {
	toks := tokens(label, permissiveTokenRunes)
	if len(toks) == 0 {
		return taxonomy.SubSentiment{}, false
	}
	for _, entry := range scoped {
		haystacks := make([]string, 0, len(entry.Keywords)+1)
		haystacks = append(haystacks, Fold(entry.Name))
		for _, kw := range entry.Keywords {
			haystacks = append(haystacks, Fold(kw))
		}
		for _, hay := range haystacks {
			for _, tok := range toks {
				if strings.Contains(hay, tok) {
					return entry, true
				}
			}
		}
	}
	return taxonomy.SubSentiment{}, false
}
