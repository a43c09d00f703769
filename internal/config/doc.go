// Package config loads, normalizes, and validates moodreel's TOML
// configuration.
//
// Load resolves the config path (explicit flag, ~/.config/moodreel/config.toml,
// then ./moodreel.toml), decodes with go-toml, expands ~ in paths, falls back
// to TMDB_API_KEY and OPENROUTER_API_KEY from the environment, and validates
// each section. Default and the embedded sample file document every key.
package config
