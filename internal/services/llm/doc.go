// Package llm provides an OpenRouter-compatible chat client used by the scene
// planner.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON content.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON / ExtractJSON: tolerate code fences and prose around JSON.
//
// # Retry Behaviour
//
// By default every request is attempted once. WithRetryMaxAttempts enables
// retries on HTTP 408/429/5xx, empty content, and network timeouts with
// exponential backoff (base 1s, max 10s), honouring Retry-After. Context
// cancellation aborts retries immediately.
package llm
