package taxonomy

import (
	"sort"
	"time"
)

// MainSentiment is a root emotional category. Immutable after creation.
type MainSentiment struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// SubSentiment is a concept nested under exactly one MainSentiment.
type SubSentiment struct {
	ID              int64
	Name            string
	MainSentimentID int64
	Keywords        []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Roster is an ordered list of SubSentiments offered to the matcher. Order
// breaks ties, so callers build it in ascending id order.
type Roster []SubSentiment

// Scoped returns the entries owned by mainSentimentID, preserving order.
func (r Roster) Scoped(mainSentimentID int64) Roster {
	out := make(Roster, 0, len(r))
	for _, entry := range r {
		if entry.MainSentimentID == mainSentimentID {
			out = append(out, entry)
		}
	}
	return out
}

// ByID returns the entry with the given id.
func (r Roster) ByID(id int64) (SubSentiment, bool) {
	for _, entry := range r {
		if entry.ID == id {
			return entry, true
		}
	}
	return SubSentiment{}, false
}

// SortByID orders the roster by ascending id.
func (r Roster) SortByID() {
	sort.SliceStable(r, func(i, j int) bool { return r[i].ID < r[j].ID })
}

// Profile is a journey option: a target emotional profile scored against movies.
type Profile struct {
	ID              int64
	Label           string
	MainSentimentID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DNARow is one weighted expectation of a profile. Name, Weight and
// SubSentimentID are what scoring and canonicalization read.
type DNARow struct {
	ID              int64
	ProfileID       int64
	SubSentimentID  int64
	SubSentiment    string
	MainSentimentID int64
	Weight          float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Movie holds the attributes used to build candidate labels.
type Movie struct {
	ID          int64
	TMDBID      int64
	Title       string
	Year        int
	Synopsis    string
	Genres      []string
	Keywords    []string
	VoteAverage float64
	IMDBRating  float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BestRating returns the higher of the IMDb rating and the TMDB vote average.
func (m Movie) BestRating() float64 {
	return max(m.IMDBRating, m.VoteAverage)
}

// AssociationKey identifies an Association.
type AssociationKey struct {
	MovieID         int64
	MainSentimentID int64
	SubSentimentID  int64
}

// Association is a stored movie to concept relevance measurement.
type Association struct {
	ID              int64
	MovieID         int64
	MainSentimentID int64
	SubSentimentID  int64
	SubSentiment    string
	Relevance       float64
	Explanation     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key returns the uniqueness key of the association.
func (a Association) Key() AssociationKey {
	return AssociationKey{MovieID: a.MovieID, MainSentimentID: a.MainSentimentID, SubSentimentID: a.SubSentimentID}
}

// Suggestion is the materialized ranking of a movie for a profile.
type Suggestion struct {
	ID             int64
	MovieID        int64
	ProfileID      int64
	RelevanceScore *float64
	Reason         string
	Rank           *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProposalStatus tracks the admit workflow of a proposed concept.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a new concept suggested by the matcher's third outcome, waiting
// for a human decision. It carries the association that triggered it.
type Proposal struct {
	ID              int64
	MainSentimentID int64
	Name            string
	Keywords        []string
	MovieID         int64
	Relevance       float64
	Explanation     string
	Status          ProposalStatus
	DecidedBy       string
	DecidedAt       *time.Time
	SubSentimentID  *int64
	CreatedAt       time.Time
}
