package suggest

import (
	"context"

	"moodreel/internal/taxonomy"
)

// Match types reported by the collaborator.
const (
	TypeOfficial   = "OFFICIAL"
	TypeSuggestion = "SUGGESTION"
)

// RawMatch is one candidate tuple as returned by the collaborator.
type RawMatch struct {
	ID          int64    `json:"id" jsonschema:"required,description=SubSentiment id from the lists or 0 for a new concept"`
	Name        string   `json:"name" jsonschema:"required" validate:"notblank"`
	Relevance   *float64 `json:"relevance" jsonschema:"required,minimum=0,maximum=1" validate:"required,gte=0,lte=1"`
	Explanation string   `json:"explanation" jsonschema:"required" validate:"notblank"`
	Type        string   `json:"type" jsonschema:"required,enum=OFFICIAL,enum=SUGGESTION"`
}

// Response is the collaborator's candidate set for one (movie, profile).
type Response struct {
	Matches []RawMatch `json:"matches" jsonschema:"required"`
}

type reasonResponse struct {
	Reason string `json:"reason" jsonschema:"required"`
}

// Request carries what the collaborator needs to evaluate a movie for a profile.
type Request struct {
	Movie      taxonomy.Movie
	Profile    taxonomy.Profile
	Lens       taxonomy.MainSentiment
	Expected   []taxonomy.DNARow
	Library    taxonomy.Roster
	MaxMatches int
}

// ReasonRequest asks for the narrative reason behind a high score.
type ReasonRequest struct {
	Movie   taxonomy.Movie
	Profile taxonomy.Profile
	Score   float64
	Matched map[string]float64
}

// Suggester produces candidate tuples and narrative reasons.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (Response, error)
	Reason(ctx context.Context, req ReasonRequest) (string, error)
}
