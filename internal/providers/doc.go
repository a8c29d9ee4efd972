// Package providers implements the Reviewer interface for each supported
// analysis backend.
//
// Supported providers: Anthropic (Claude), OpenAI (GPT), Google (Gemini),
// Ollama / LMStudio for local models, and Lyzr Agent Studio hosted agents.
//
// A Review call makes exactly one HTTP request. Non-200 answers are returned
// as *StatusError so callers can decide whether to retry (429 and 5xx are
// retryable); providers never retry on their own. Keys and endpoints come
// from Options, and tests point BaseURL at httptest servers.
//
// Use [New] to obtain a Reviewer by provider name.
package providers
