// Package service is the review entry point shared by the CLI and the HTTP
// server. A request names a pull request or carries a diff; the service
// fetches the diff when needed, runs the orchestrator, and optionally posts
// the result back to the pull request. Reviews triggered by webhooks run as
// background jobs that are drained on shutdown.
package service
