package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// mergeEnv overlays environment variables onto cfg. Only non-empty values
// override; unparsable numbers are ignored.
func mergeEnv(cfg *Config) {
	setString(&cfg.Provider, "PANEL_PROVIDER")
	setString(&cfg.Model, "PANEL_MODEL")
	setString(&cfg.BaseURL, "PANEL_BASE_URL")
	setString(&cfg.Format, "PANEL_FORMAT")
	setString(&cfg.FailOn, "PANEL_FAIL_ON")
	setInt(&cfg.MaxFindings, "PANEL_MAX_FINDINGS")
	setInt(&cfg.ContextLines, "PANEL_CONTEXT_LINES")
	setInt(&cfg.MaxDiffBytes, "PANEL_MAX_DIFF_BYTES")
	setString(&cfg.RulesFile, "PANEL_RULES_FILE")

	if v := os.Getenv("PANEL_SPECIALISTS"); v != "" {
		cfg.Review.Specialists = splitList(v)
	}
	setDuration(&cfg.Review.SpecialistTimeout, "PANEL_SPECIALIST_TIMEOUT")
	setDuration(&cfg.Review.RunTimeout, "PANEL_RUN_TIMEOUT")
	setInt(&cfg.Review.RetryAttempts, "PANEL_RETRY_ATTEMPTS")
	setDuration(&cfg.Review.RetryDelay, "PANEL_RETRY_DELAY")
	setInt(&cfg.Review.MaxParallel, "PANEL_MAX_PARALLEL")
	setInt(&cfg.Review.MaxActions, "PANEL_MAX_ACTIONS")

	setString(&cfg.Server.Addr, "PANEL_ADDR")
	setInt(&cfg.Server.MaxJobs, "PANEL_MAX_JOBS")
	setString(&cfg.Logging.Level, "PANEL_LOG_LEVEL")
	setBool(&cfg.Cache.Enabled, "PANEL_CACHE")
	setBool(&cfg.Privacy.RedactSecrets, "PANEL_REDACT_SECRETS")

	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	setString(&cfg.GitHub.WebhookSecret, "GITHUB_WEBHOOK_SECRET")
	setString(&cfg.GitHub.BaseURL, "GITHUB_API_URL")

	setString(&cfg.Lyzr.UserID, "LYZR_USER_ID")
	for cat, key := range map[string]string{
		"performance": "LYZR_PERFORMANCE_AGENT_ID",
		"typesafety":  "LYZR_TYPESAFETY_AGENT_ID",
		"ux-react":    "LYZR_REACT_AGENT_ID",
		"logic":       "LYZR_LOGIC_AGENT_ID",
		"other":       "LYZR_OTHER_AGENT_ID",
	} {
		if v := os.Getenv(key); v != "" {
			if cfg.Lyzr.Agents == nil {
				cfg.Lyzr.Agents = make(map[string]string)
			}
			cfg.Lyzr.Agents[cat] = v
		}
	}

	// The provider key wins over PANEL_API_KEY so one environment can hold
	// keys for several providers.
	setString(&cfg.APIKey, "PANEL_API_KEY")
	if key := providerKeyEnv(cfg.Provider); key != "" {
		setString(&cfg.APIKey, key)
	}
}

// providerKeyEnv names the API key variable of a provider.
func providerKeyEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini", "google":
		return "GEMINI_API_KEY"
	case "lyzr":
		return "LYZR_API_KEY"
	}
	return ""
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("flag override: %w", err)
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is
// unknown or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
		// Re-resolve the key for the new provider.
		if env := providerKeyEnv(value); env != "" {
			setString(&cfg.APIKey, env)
		}
	case "model":
		cfg.Model = value
	case "base_url":
		cfg.BaseURL = value
	case "format":
		cfg.Format = value
	case "fail_on":
		cfg.FailOn = value
	case "rules_file":
		cfg.RulesFile = value
	case "specialists":
		cfg.Review.Specialists = splitList(value)
	case "addr":
		cfg.Server.Addr = value
	case "log_level":
		cfg.Logging.Level = value
	case "max_findings":
		return parseInt(&cfg.MaxFindings, key, value)
	case "context_lines":
		return parseInt(&cfg.ContextLines, key, value)
	case "max_diff_bytes":
		return parseInt(&cfg.MaxDiffBytes, key, value)
	case "retry_attempts":
		return parseInt(&cfg.Review.RetryAttempts, key, value)
	case "max_parallel":
		return parseInt(&cfg.Review.MaxParallel, key, value)
	case "max_actions":
		return parseInt(&cfg.Review.MaxActions, key, value)
	case "specialist_timeout":
		return parseDuration(&cfg.Review.SpecialistTimeout, key, value)
	case "run_timeout":
		return parseDuration(&cfg.Review.RunTimeout, key, value)
	case "cache":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func parseInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func parseDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a duration: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
