package suggest

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"

	"moodreel/internal/services/llm"
)

func generateSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	raw, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// ResponseSchema returns the strict schema for candidate sets.
func ResponseSchema() (llm.Schema, error) {
	body, err := generateSchema[Response]()
	if err != nil {
		return llm.Schema{}, fmt.Errorf("build response schema: %w", err)
	}
	return llm.Schema{Name: "concept_matches", Schema: body}, nil
}

func reasonSchema() (llm.Schema, error) {
	body, err := generateSchema[reasonResponse]()
	if err != nil {
		return llm.Schema{}, fmt.Errorf("build reason schema: %w", err)
	}
	return llm.Schema{Name: "suggestion_reason", Schema: body}, nil
}
