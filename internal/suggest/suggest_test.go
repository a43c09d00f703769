package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"moodreel/internal/services"
	"moodreel/internal/services/llm"
	"moodreel/internal/taxonomy"
)

func rel(v float64) *float64 { return &v }

func TestSanitizeDropsMalformedAndCaps(t *testing.T) {
	raw := []RawMatch{
		{Name: "Luto", Relevance: rel(0.9), Explanation: "perda", Type: "OFFICIAL", ID: 4},
		{Name: "", Relevance: rel(0.8), Explanation: "sem nome"},
		{Name: "Medo", Relevance: rel(1.4), Explanation: "fora de faixa"},
		{Name: "Tédio", Explanation: "sem relevância"},
		{Name: "Saudade", Relevance: rel(0.6), Explanation: "   "},
		{Name: "Raiva", Relevance: rel(0.3), Explanation: "fraco"},
		{Name: "Solidão", Relevance: rel(0.7), Explanation: "isolamento"},
		{Name: "Culpa", Relevance: rel(0.95), Explanation: "remorso", ID: -3},
	}
	kept, dropped := Sanitize(raw, 0.5, 2)

	if len(kept) != 2 || kept[0].Label != "Culpa" || kept[1].Label != "Luto" {
		t.Fatalf("unexpected kept %+v", kept)
	}
	if kept[0].HintedID != 0 || kept[1].HintedID != 4 || !kept[1].Official {
		t.Fatalf("unexpected hint/official handling %+v", kept)
	}
	reasons := map[string]int{}
	for _, d := range dropped {
		reasons[d.Reason]++
	}
	if reasons[DropInvalid] != 4 || reasons[DropBelowFloor] != 1 || reasons[DropOverLimit] != 1 {
		t.Fatalf("unexpected drop reasons %v (%+v)", reasons, dropped)
	}
}

func TestResponseSchemaIsStrict(t *testing.T) {
	schema, err := ResponseSchema()
	if err != nil {
		t.Fatalf("ResponseSchema: %v", err)
	}
	data, err := json.Marshal(schema.Schema)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	for _, want := range []string{`"matches"`, `"relevance"`, `"additionalProperties":false`, `"OFFICIAL"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("schema missing %s: %s", want, text)
		}
	}
	if strings.Contains(text, `"$schema"`) {
		t.Fatalf("schema should not carry $schema: %s", text)
	}
}

func TestBuildPromptListsOfficialAndLibrary(t *testing.T) {
	req := Request{
		Movie:   taxonomy.Movie{Title: "Aftersun", Year: 2022, Synopsis: "Férias", Genres: []string{"Drama"}, Keywords: []string{"pai", "memória"}},
		Profile: taxonomy.Profile{Label: "Processar o luto"},
		Lens:    taxonomy.MainSentiment{ID: 1, Name: "Triste"},
		Expected: []taxonomy.DNARow{
			{SubSentimentID: 2, SubSentiment: "Saudade", Weight: 0.5},
			{SubSentimentID: 3, SubSentiment: "Luto", Weight: 1.0},
		},
		Library: taxonomy.Roster{
			{ID: 2, Name: "Saudade"},
			{ID: 9, Name: "Melancolia", Keywords: []string{"a", "b", "c", "d"}},
		},
		MaxMatches: 7,
	}
	prompt := BuildPrompt(req)
	if strings.Index(prompt, "Luto (ID: 3") > strings.Index(prompt, "Saudade (ID: 2") {
		t.Fatal("official list should be ordered by weight")
	}
	if !strings.Contains(prompt, "Melancolia (ID: 9) (keywords: a, b, c)") {
		t.Fatalf("library entry missing: %s", prompt)
	}
	if strings.Count(prompt, "Saudade (ID: 2") != 1 {
		t.Fatal("official concepts must not repeat in the library")
	}
	if !strings.Contains(prompt, "No máximo 7 matches") {
		t.Fatal("max matches not rendered")
	}
}

type fakeCompleter struct {
	content string
	err     error
	schemas []string
}

func (f *fakeCompleter) CompleteSchema(_ context.Context, _, _ string, schema llm.Schema) (string, error) {
	f.schemas = append(f.schemas, schema.Name)
	return f.content, f.err
}

func TestLLMSuggesterClassifiesFailures(t *testing.T) {
	ctx := context.Background()
	good := &fakeCompleter{content: "```json\n{\"matches\":[{\"id\":1,\"name\":\"Luto\",\"relevance\":0.8,\"explanation\":\"x\",\"type\":\"OFFICIAL\"}]}\n```"}
	resp, err := NewLLMSuggester(good).Suggest(ctx, Request{})
	if err != nil || len(resp.Matches) != 1 || good.schemas[0] != "concept_matches" {
		t.Fatalf("Suggest: %+v %v", resp, err)
	}

	_, err = NewLLMSuggester(&fakeCompleter{err: errors.New("boom")}).Suggest(ctx, Request{})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	_, err = NewLLMSuggester(&fakeCompleter{content: "not json"}).Suggest(ctx, Request{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	reason, err := NewLLMSuggester(&fakeCompleter{content: `{"reason":" acolhe a dor "}`}).Reason(ctx, ReasonRequest{})
	if err != nil || reason != "acolhe a dor" {
		t.Fatalf("Reason: %q %v", reason, err)
	}
}

type staticSuggester struct {
	resp   Response
	reason string
}

func (s staticSuggester) Suggest(context.Context, Request) (Response, error) { return s.resp, nil }
func (s staticSuggester) Reason(context.Context, ReasonRequest) (string, error) {
	return s.reason, nil
}

func TestRecordThenReplay(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	source := staticSuggester{
		resp:   Response{Matches: []RawMatch{{ID: 3, Name: "Luto", Relevance: rel(0.9), Explanation: "perda", Type: TypeOfficial}}},
		reason: "acompanha o luto",
	}
	rec, err := NewRecorder(source, dir)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	req := Request{Movie: taxonomy.Movie{ID: 5}, Profile: taxonomy.Profile{ID: 6}}
	if _, err := rec.Suggest(ctx, req); err != nil {
		t.Fatalf("record Suggest: %v", err)
	}
	if _, err := rec.Reason(ctx, ReasonRequest{Movie: req.Movie, Profile: req.Profile}); err != nil {
		t.Fatalf("record Reason: %v", err)
	}

	replay, err := NewReplayer(dir)
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	got, err := replay.Suggest(ctx, req)
	if err != nil {
		t.Fatalf("replay Suggest: %v", err)
	}
	if len(got.Matches) != 1 || *got.Matches[0].Relevance != 0.9 || got.Matches[0].Name != "Luto" {
		t.Fatalf("unexpected replay %+v", got)
	}
	reason, err := replay.Reason(ctx, ReasonRequest{Movie: req.Movie, Profile: req.Profile})
	if err != nil || reason != "acompanha o luto" {
		t.Fatalf("replay Reason: %q %v", reason, err)
	}

	_, err = replay.Suggest(ctx, Request{Movie: taxonomy.Movie{ID: 99}, Profile: taxonomy.Profile{ID: 6}})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing recording, got %v", err)
	}
}
