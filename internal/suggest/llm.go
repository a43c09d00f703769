package suggest

import (
	"context"
	"strings"

	"moodreel/internal/services"
	"moodreel/internal/services/llm"
)

// Completer is the subset of the LLM client the suggester needs.
type Completer interface {
	CompleteSchema(ctx context.Context, systemPrompt, userPrompt string, schema llm.Schema) (string, error)
}

// LLMSuggester asks a chat-completions model for candidate sets.
type LLMSuggester struct {
	client Completer
}

// NewLLMSuggester wraps client.
func NewLLMSuggester(client Completer) *LLMSuggester {
	return &LLMSuggester{client: client}
}

// Suggest requests a candidate set. Transport failures are ErrExternalService;
// an unparseable payload is ErrValidation so the movie can be skipped.
func (s *LLMSuggester) Suggest(ctx context.Context, req Request) (Response, error) {
	schema, err := ResponseSchema()
	if err != nil {
		return Response{}, services.Wrap(services.ErrConfiguration, "suggest", "schema", "", err)
	}
	content, err := s.client.CompleteSchema(ctx, systemPrompt, BuildPrompt(req), schema)
	if err != nil {
		return Response{}, services.Wrap(services.ErrExternalService, "suggest", "complete", req.Movie.Title, err)
	}
	var resp Response
	if err := llm.DecodeLLMJSON(content, &resp); err != nil {
		return Response{}, services.Wrap(services.ErrValidation, "suggest", "decode", req.Movie.Title, err)
	}
	return resp, nil
}

// Reason requests the narrative reason for a high score.
func (s *LLMSuggester) Reason(ctx context.Context, req ReasonRequest) (string, error) {
	schema, err := reasonSchema()
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "suggest", "schema", "", err)
	}
	content, err := s.client.CompleteSchema(ctx, reasonSystemPrompt, BuildReasonPrompt(req), schema)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "suggest", "reason", req.Movie.Title, err)
	}
	var resp reasonResponse
	if err := llm.DecodeLLMJSON(content, &resp); err != nil {
		return "", services.Wrap(services.ErrValidation, "suggest", "decode reason", req.Movie.Title, err)
	}
	reason := strings.TrimSpace(resp.Reason)
	if reason == "" {
		return "", services.Wrap(services.ErrValidation, "suggest", "decode reason", "empty reason", nil)
	}
	return reason, nil
}
