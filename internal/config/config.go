package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is checked in the working directory before the user
// config directory.
const DefaultConfigFile = "panel.yaml"

// Config represents the panel configuration.
type Config struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url,omitempty"`
	APIKey       string        `yaml:"-"`
	Format       string        `yaml:"format"`
	FailOn       string        `yaml:"fail_on"`
	MaxFindings  int           `yaml:"max_findings"`
	ContextLines int           `yaml:"context_lines"`
	Include      []string      `yaml:"include"`
	Exclude      []string      `yaml:"exclude"`
	MaxDiffBytes int           `yaml:"max_diff_bytes"`
	RulesFile    string        `yaml:"rules_file,omitempty"`
	Review       Review        `yaml:"review"`
	Lyzr         Lyzr          `yaml:"lyzr"`
	GitHub       GitHub        `yaml:"github"`
	Server       Server        `yaml:"server"`
	Logging      Logging       `yaml:"logging"`
	Cache        CacheConfig   `yaml:"cache"`
	Privacy      PrivacyConfig `yaml:"privacy"`
}

// Review controls orchestration of a review run.
type Review struct {
	Specialists       []string      `yaml:"specialists,omitempty"`
	SpecialistTimeout time.Duration `yaml:"specialist_timeout"`
	RunTimeout        time.Duration `yaml:"run_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	MaxParallel       int           `yaml:"max_parallel"`
	MaxActions        int           `yaml:"max_actions"`
}

// Lyzr holds settings for the Lyzr agent API. Agents maps a category name
// to the agent that reviews it.
type Lyzr struct {
	UserID string            `yaml:"user_id,omitempty"`
	Agents map[string]string `yaml:"agents,omitempty"`
}

// GitHub holds GitHub access settings. Secrets come from the environment only.
type GitHub struct {
	Token         string `yaml:"-"`
	WebhookSecret string `yaml:"-"`
	// BaseURL is set for GitHub Enterprise, e.g. https://ghe.example.com/api/v3/.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Server configures the HTTP service.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxJobs         int           `yaml:"max_jobs"`
}

// Logging configures the structured logger.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// CacheConfig controls the in-memory specialist result cache.
type CacheConfig struct {
	Enabled    bool  `yaml:"enabled"`
	MaxBytes   int64 `yaml:"max_bytes"`
	TTLSeconds int   `yaml:"ttl_seconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redact_secrets"`
	RedactPaths   []string `yaml:"redact_paths,omitempty"`
}

// Lyzr agent IDs of the hosted review agents.
var defaultLyzrAgents = map[string]string{
	"performance": "6918709b3ce080cebc84efbc",
	"typesafety":  "6918711534fa533a0e5725b6",
	"ux-react":    "691871575848af7d875ae40c",
	"logic":       "6918718434fa533a0e5725ce",
}

// Default returns a Config with all defaults applied.
func Default() Config {
	agents := make(map[string]string, len(defaultLyzrAgents))
	for k, v := range defaultLyzrAgents {
		agents[k] = v
	}
	return Config{
		Provider:     "anthropic",
		Model:        "claude-sonnet-4-20250514",
		Format:       "text",
		FailOn:       "none",
		MaxFindings:  50,
		ContextLines: 3,
		Include:      []string{"**/*"},
		Exclude:      []string{"vendor/**", "**/*.gen.go", "**/dist/**", "**/node_modules/**"},
		MaxDiffBytes: 50000,
		Review: Review{
			SpecialistTimeout: 60 * time.Second,
			RunTimeout:        180 * time.Second,
			RetryAttempts:     1,
			RetryDelay:        500 * time.Millisecond,
			MaxParallel:       8,
			MaxActions:        3,
		},
		Lyzr: Lyzr{
			UserID: "panel@localhost",
			Agents: agents,
		},
		Server: Server{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    300 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxJobs:         16,
		},
		Logging: Logging{
			Level:   "info",
			Service: "panel",
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxBytes:   64 << 20,
			TTLSeconds: 3600,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for panel.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "panel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "panel"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "panel"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "panel"), nil
	default:
		return filepath.Join(home, ".config", "panel"), nil
	}
}

// ConfigPath returns the config file to use: panel.yaml in the working
// directory when present, else config.yaml in the user config directory.
func ConfigPath() (string, error) {
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the config to path, creating its directory.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <-
// overrides. An empty path means ConfigPath. The overrides map comes from
// CLI flags (only non-zero values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if err := loadYAML(&cfg, path); err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	mergeEnv(&cfg)
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile returns the defaults merged with the file at path only.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := loadYAML(&cfg, path); err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	return cfg, nil
}

// loadYAML unmarshals the file over cfg. A missing file is not an error.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that the effective config can drive a review.
func (c Config) Validate() error {
	switch {
	case c.Provider == "":
		return errors.New("provider is required")
	case c.MaxDiffBytes < 0:
		return errors.New("max_diff_bytes must be >= 0")
	case c.Review.SpecialistTimeout <= 0:
		return errors.New("review.specialist_timeout must be > 0")
	case c.Review.RunTimeout <= 0:
		return errors.New("review.run_timeout must be > 0")
	case c.Review.RetryAttempts < 1:
		return errors.New("review.retry_attempts must be >= 1")
	case c.Review.MaxParallel < 1:
		return errors.New("review.max_parallel must be >= 1")
	case c.Review.MaxActions < 1:
		return errors.New("review.max_actions must be >= 1")
	}
	switch c.Format {
	case "text", "json", "markdown", "md", "sarif":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	switch c.FailOn {
	case "none", "minor", "major", "critical":
	default:
		return fmt.Errorf("fail_on must be one of none, minor, major, critical (got %q)", c.FailOn)
	}
	return nil
}
