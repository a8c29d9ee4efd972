// Package redact removes secrets from diff content before it is sent to an
// analysis backend.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS credentials, bearer tokens, database URLs with
// inline passwords, and provider-specific tokens (Anthropic, OpenAI, GitHub,
// Slack). Deployments may add their own expressions.
//
// Files whose paths match configured globs keep their diff headers but have
// every hunk replaced with [REDACTED].
package redact
