package config

const (
	defaultConfigPath             = "~/.config/moodreel/config.toml"
	defaultDataDir                = "~/.local/share/moodreel"
	defaultLogDir                 = "~/.local/share/moodreel/logs"
	defaultDatabaseName           = "moodreel.db"
	defaultTMDBLanguage           = "pt-BR"
	defaultTMDBBaseURL            = "https://api.themoviedb.org/3"
	defaultTMDBRequestsPerSecond  = 4
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "deepseek/deepseek-chat"
	defaultLLMReferer             = "https://github.com/moodreel/moodreel"
	defaultLLMTitle               = "moodreel curation"
	defaultLLMTimeoutSeconds      = 60
	defaultLLMTemperature         = 0.5
	defaultLLMMaxTokens           = 2000
	defaultWorkers                = 4
	defaultBatchSize              = 10
	defaultRetryAttempts          = 3
	defaultMinRating              = 5.6
	defaultMinRelevance           = 0.5
	defaultMaxMatches             = 10
	defaultCurationThreshold      = 5.5
	defaultAcceptThreshold        = 3.0
	defaultBreakerFailures        = 5
	defaultBreakerCooldownSeconds = 30
	defaultNotifyTimeout          = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		TMDB: TMDB{
			Language:          defaultTMDBLanguage,
			BaseURL:           defaultTMDBBaseURL,
			RequestsPerSecond: defaultTMDBRequestsPerSecond,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
		},
		Curation: Curation{
			Workers:                defaultWorkers,
			BatchSize:              defaultBatchSize,
			RetryAttempts:          defaultRetryAttempts,
			MinRating:              defaultMinRating,
			MinRelevance:           defaultMinRelevance,
			MaxMatches:             defaultMaxMatches,
			CurationThreshold:      defaultCurationThreshold,
			AcceptThreshold:        defaultAcceptThreshold,
			ProposeNewConcepts:     true,
			BreakerFailures:        defaultBreakerFailures,
			BreakerCooldownSeconds: defaultBreakerCooldownSeconds,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyTimeout,
			Approvals:       true,
			Verification:    true,
			CurationSummary: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
