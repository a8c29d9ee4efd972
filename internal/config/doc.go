// Package config loads and merges panel configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (PANEL_PROVIDER, PANEL_MODEL, PANEL_RUN_TIMEOUT,
//     GITHUB_TOKEN, GITHUB_WEBHOOK_SECRET, provider API keys, etc.)
//  3. YAML config file (./panel.yaml, else $XDG_CONFIG_HOME/panel/config.yaml)
//  4. Built-in defaults
//
// Secrets are read from the environment only and never written by [Save].
package config
