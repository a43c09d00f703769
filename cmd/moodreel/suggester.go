package main

import (
	"strings"

	"moodreel/internal/config"
	"moodreel/internal/services/llm"
	"moodreel/internal/suggest"
)

type suggesterFlags struct {
	recordDir string
	replayDir string
}

// buildSuggester returns the collaborator for a run. A replay directory
// bypasses the LLM entirely; a record directory captures live responses.
func buildSuggester(cfg *config.Config, flags suggesterFlags) (suggest.Suggester, error) {
	if dir := strings.TrimSpace(flags.replayDir); dir != "" {
		replayer, err := suggest.NewReplayer(dir)
		if err != nil {
			return nil, err
		}
		return replayer, nil
	}
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	conn := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         conn.APIKey,
		BaseURL:        conn.BaseURL,
		Model:          conn.Model,
		Referer:        conn.Referer,
		Title:          conn.Title,
		TimeoutSeconds: conn.TimeoutSeconds,
	},
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithRetryMaxAttempts(cfg.Curation.RetryAttempts),
	)
	var sugg suggest.Suggester = suggest.NewLLMSuggester(client)
	if dir := strings.TrimSpace(flags.recordDir); dir != "" {
		recorder, err := suggest.NewRecorder(sugg, dir)
		if err != nil {
			return nil, err
		}
		return recorder, nil
	}
	return sugg, nil
}
