package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dshills/panel/internal/cache"
	"github.com/dshills/panel/internal/config"
	"github.com/dshills/panel/internal/github"
	"github.com/dshills/panel/internal/logger"
	"github.com/dshills/panel/internal/orchestrator"
	"github.com/dshills/panel/internal/providers"
	"github.com/dshills/panel/internal/redact"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/service"
	"github.com/dshills/panel/internal/specialist"
	"github.com/dshills/panel/internal/telemetry"
)

// app is the review pipeline built from one effective config.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	backend providers.Reviewer
	cache   *cache.Cache
	gh      *github.Client
	svc     *service.Service
}

// newApp builds the pipeline: provider, specialist client, orchestrator,
// GitHub client (when a token is set) and service.
func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	if log == nil {
		log = logger.New(cfg.Logging, os.Stderr)
	}

	backend, err := providers.New(cfg.Provider, providers.Options{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		UserID:  cfg.Lyzr.UserID,
	})
	if err != nil {
		return nil, err
	}

	rules, err := specialist.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	agents, err := agentIDs(cfg.Lyzr.Agents)
	if err != nil {
		return nil, err
	}

	ch, err := cache.New(cfg.Cache.Enabled, cfg.Cache.MaxBytes, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	if err != nil {
		return nil, err
	}

	opts := []specialist.Option{specialist.WithCache(ch), specialist.WithLogger(log)}
	if cfg.Privacy.RedactSecrets {
		r, err := redact.New(cfg.Privacy.RedactPaths)
		if err != nil {
			return nil, err
		}
		opts = append(opts, specialist.WithRedactor(r))
	}
	client := specialist.New(backend, specialist.Config{
		Model:        cfg.Model,
		Agents:       agents,
		MaxDiffBytes: cfg.MaxDiffBytes,
		MaxFindings:  cfg.MaxFindings,
		Rules:        rules,
	}, opts...)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, err
	}
	orch := orchestrator.New(client,
		orchestrator.WithMaxParallel(cfg.Review.MaxParallel),
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(metrics),
	)

	defaults, err := runOptions(cfg.Review)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, backend: backend, cache: ch}
	var gh service.GitHub
	ghClient, err := github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.BaseURL)
	switch {
	case err == nil:
		a.gh = ghClient
		gh = ghClient
	case errors.Is(err, github.ErrNoToken):
		log.Debug("GitHub token not set; pull request reviews are disabled")
	default:
		return nil, err
	}

	a.svc = service.New(orch, gh,
		service.WithDefaults(defaults),
		service.WithExclude(cfg.Exclude),
		service.WithLogger(log),
		service.WithMetrics(metrics),
		service.WithMaxJobs(cfg.Server.MaxJobs),
	)
	return a, nil
}

// Close releases the result cache.
func (a *app) Close() {
	a.cache.Close()
}

// runOptions maps the review config onto orchestrator options.
func runOptions(r config.Review) (orchestrator.Options, error) {
	cats, err := parseCategories(r.Specialists)
	if err != nil {
		return orchestrator.Options{}, err
	}
	return orchestrator.Options{
		Specialists:       cats,
		SpecialistTimeout: r.SpecialistTimeout,
		RunTimeout:        r.RunTimeout,
		RetryAttempts:     r.RetryAttempts,
		RetryDelay:        r.RetryDelay,
		MaxActions:        r.MaxActions,
	}, nil
}

func parseCategories(names []string) ([]review.Category, error) {
	var cats []review.Category
	for _, n := range names {
		c, err := review.ParseCategory(n)
		if err != nil {
			return nil, fmt.Errorf("specialists: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func agentIDs(m map[string]string) (map[review.Category]string, error) {
	out := make(map[review.Category]string, len(m))
	for name, id := range m {
		c, err := review.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("lyzr.agents: %w", err)
		}
		out[c] = id
	}
	return out, nil
}
