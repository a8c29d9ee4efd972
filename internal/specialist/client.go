package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/panel/internal/cache"
	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/providers"
	"github.com/dshills/panel/internal/redact"
	"github.com/dshills/panel/internal/review"
)

// DefaultMaxDiffBytes caps the diff text sent in one prompt.
const DefaultMaxDiffBytes = 50000

// Config holds the per-deployment settings of a Client.
type Config struct {
	// Model is recorded in cache keys; the provider already knows it.
	Model string
	// Agents maps categories to hosted agent ids for agent-routed backends.
	Agents       map[review.Category]string
	MaxDiffBytes int
	MaxFindings  int
	MaxTokens    int
	Temperature  float64
	Rules        *Rules
}

// Client runs one specialist analysis against an analysis backend.
type Client struct {
	reviewer providers.Reviewer
	cfg      Config
	redactor *redact.Redactor
	cache    *cache.Cache
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRedactor scrubs secrets from the diff before it is sent.
func WithRedactor(r *redact.Redactor) Option {
	return func(c *Client) { c.redactor = r }
}

// WithCache reuses results for identical inputs.
func WithCache(ch *cache.Cache) Option {
	return func(c *Client) { c.cache = ch }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client backed by reviewer.
func New(reviewer providers.Reviewer, cfg Config, opts ...Option) *Client {
	if cfg.MaxDiffBytes <= 0 {
		cfg.MaxDiffBytes = DefaultMaxDiffBytes
	}
	c := &Client{
		reviewer: reviewer,
		cfg:      cfg,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Backend returns the name of the analysis backend.
func (c *Client) Backend() string { return c.reviewer.Name() }

// Analyze asks the category's specialist to review d. It makes at most one
// outbound call and never retries. A diff with nothing relevant to the
// category returns an empty result without calling out.
func (c *Client) Analyze(ctx context.Context, category review.Category, d *diffctx.Context, timeout time.Duration) ([]review.Finding, error) {
	if d.IsEmpty() {
		return nil, ErrEmptyDiff
	}
	if timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	profile, ok := ProfileFor(category)
	if !ok {
		return nil, fmt.Errorf("unknown specialist category %q", category)
	}
	if !Relevant(category, d) {
		c.logger.Debug("specialist not relevant to diff", "category", category)
		return []review.Finding{}, nil
	}

	diff := c.diffText(d)
	agent := c.cfg.Agents[category]
	key := cache.BuildKey(c.reviewer.Name(), c.cfg.Model, agent, string(category), diff)
	if cached, ok := c.cachedFindings(key); ok {
		c.logger.Debug("specialist cache hit", "category", category, "findings", len(cached))
		return cached, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.reviewer.Review(callCtx, providers.Request{
		SystemPrompt: systemPrompt(profile, c.cfg.Rules),
		UserPrompt:   userPrompt(diff, d.Paths(), c.cfg.MaxFindings),
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
		Agent:        agent,
	})
	if err != nil {
		return nil, classify(category, callCtx, err)
	}

	findings, err := parseFindings(resp.Content, category, profile.Name, c.cfg.Rules)
	if err != nil {
		return nil, &AnalysisError{Category: category, Kind: KindMalformedResponse, Body: resp.Content, Err: err}
	}

	c.logger.Debug("specialist finished",
		"category", category,
		"findings", len(findings),
		"tokens", resp.TokensUsed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	c.storeFindings(key, findings)
	return findings, nil
}

func (c *Client) diffText(d *diffctx.Context) string {
	if c.redactor == nil {
		return d.Truncated(c.cfg.MaxDiffBytes)
	}
	text, st := c.redactor.Diff(d)
	if st.Secrets > 0 || len(st.Files) > 0 {
		c.logger.Info("redacted diff content", "secrets", st.Secrets, "files", len(st.Files))
	}
	if len(text) > c.cfg.MaxDiffBytes {
		text = diffctx.CutUTF8(text, c.cfg.MaxDiffBytes) + "\n... (diff truncated)\n"
	}
	return text
}

func (c *Client) cachedFindings(key string) ([]review.Finding, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	var findings []review.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, false
	}
	return findings, true
}

func (c *Client) storeFindings(key string, findings []review.Finding) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return
	}
	c.cache.Put(key, data)
}

// classify maps a backend error onto an AnalysisError.
func classify(category review.Category, callCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || callCtx.Err() != nil {
		cause := callCtx.Err()
		if cause == nil {
			cause = err
		}
		return &AnalysisError{Category: category, Kind: KindTimeout, Err: cause}
	}
	var se *providers.StatusError
	if errors.As(err, &se) {
		return &AnalysisError{Category: category, Kind: KindUpstreamFailure, Status: se.StatusCode, Body: se.Body, Err: err}
	}
	if errors.Is(err, providers.ErrEmptyContent) {
		return &AnalysisError{Category: category, Kind: KindMalformedResponse, Err: err}
	}
	return &AnalysisError{Category: category, Kind: KindUpstreamFailure, Err: err}
}
