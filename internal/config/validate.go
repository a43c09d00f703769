package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. API keys are checked by the
// commands that need them (RequireTMDB, RequireLLM).
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateCuration(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.RequestsPerSecond < 0 {
		return errors.New("tmdb.requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	return nil
}

func (c *Config) validateCuration() error {
	cur := c.Curation
	if cur.Workers <= 0 {
		return errors.New("curation.workers must be positive")
	}
	if cur.BatchSize <= 0 {
		return errors.New("curation.batch_size must be positive")
	}
	if cur.RetryAttempts <= 0 {
		return errors.New("curation.retry_attempts must be positive")
	}
	if cur.MinRating < 0 || cur.MinRating > 10 {
		return errors.New("curation.min_rating must be between 0 and 10")
	}
	if cur.MinRelevance < 0 || cur.MinRelevance > 1 {
		return errors.New("curation.min_relevance must be between 0 and 1")
	}
	if cur.MaxMatches <= 0 {
		return errors.New("curation.max_matches must be positive")
	}
	if cur.CurationThreshold < 0 || cur.CurationThreshold > 10 {
		return errors.New("curation.curation_threshold must be between 0 and 10")
	}
	if cur.AcceptThreshold <= 0 {
		return fmt.Errorf("curation.accept_threshold must be positive, got %v", cur.AcceptThreshold)
	}
	if cur.BreakerFailures <= 0 {
		return errors.New("curation.breaker_failures must be positive")
	}
	if cur.BreakerCooldownSeconds < 0 {
		return errors.New("curation.breaker_cooldown_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
