package preflight

import (
	"context"

	"moodreel/internal/config"
	"moodreel/internal/store"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// HealthChecker is the store surface the checks inspect.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (store.HealthReport, error)
}

// Options selects optional checks.
type Options struct {
	SkipLLM  bool
	SkipTMDB bool
}

// RunAll executes the applicable preflight checks.
func RunAll(ctx context.Context, cfg *config.Config, st HealthChecker, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)}
	if st != nil {
		results = append(results, CheckStore(ctx, st))
	}
	if !opts.SkipTMDB {
		results = append(results, CheckTMDB(ctx, cfg.TMDB.BaseURL, cfg.TMDB.APIKey))
	}
	if !opts.SkipLLM {
		results = append(results, CheckLLM(ctx, "LLM", cfg.GetLLM()))
	}
	return results
}

// Failed returns the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
