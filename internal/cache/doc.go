// Package cache provides an in-memory cache for specialist results, backed
// by ristretto.
//
// Entries are keyed by a SHA-256 hash of the provider, model, category and
// redacted diff content, and expire after a configurable TTL. Values are
// the JSON-encoded findings, so only data that already went through secret
// redaction is retained.
package cache
