// Package server exposes panel over HTTP: a GitHub webhook receiver that
// queues reviews for opened, reopened and synchronized pull requests, a
// synchronous review endpoint, and health endpoints.
package server
