// Package llm provides an OpenAI-compatible chat client (OpenRouter by
// default) that returns JSON payloads.
//
// The curation driver uses it as the text-generation collaborator that
// proposes concept tuples and narrative reasons for a movie. Nothing in the
// deterministic core calls it.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON object.
// Client.CompleteSchema: same, constrained by a strict JSON schema.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx, network timeouts, and empty
// completions with exponential backoff (base 1s, max 10s, 3 attempts by
// default). Retry-After headers are honoured up to the max delay. Context
// cancellation aborts retries immediately.
package llm
