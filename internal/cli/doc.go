// Package cli wires together the Cobra command tree for the panel binary.
//
// It defines the root command and its subcommands (serve, review, config,
// models, specialists, hook, version), builds the review pipeline from the
// effective configuration and returns deterministic exit codes for CI
// gating.
package cli
