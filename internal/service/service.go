package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/github"
	"github.com/dshills/panel/internal/orchestrator"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/specialist"
	"github.com/dshills/panel/internal/telemetry"
)

var (
	// ErrNoTarget is returned when a request names neither a PR nor a diff.
	ErrNoTarget = errors.New("request needs a pull request or a diff")
	// ErrGitHubUnavailable is returned for PR requests when no GitHub
	// client is configured.
	ErrGitHubUnavailable = errors.New("GitHub access is not configured")
	// ErrQueueFull is returned by Submit when MaxJobs reviews are running.
	ErrQueueFull = errors.New("too many reviews in progress")
	// ErrShuttingDown is returned by Submit after Shutdown has started.
	ErrShuttingDown = errors.New("service is shutting down")
)

// Runner produces a Review for a diff. *orchestrator.Orchestrator
// implements it.
type Runner interface {
	Run(ctx context.Context, d *diffctx.Context, opts orchestrator.Options) (*review.Review, error)
}

// GitHub fetches pull request diffs and posts reviews. *github.Client
// implements it.
type GitHub interface {
	FetchDiff(ctx context.Context, ref github.PRRef) (string, error)
	Publish(ctx context.Context, ref github.PRRef, rev *review.Review, d *diffctx.Context) (github.Published, error)
}

// Request is one review invocation. Exactly one of PR and Diff is used;
// PR wins when both are set.
type Request struct {
	PR      *github.PRRef
	Diff    *diffctx.Context
	Options orchestrator.Options
	// AutoPost publishes the review to the pull request. It is ignored for
	// plain diffs.
	AutoPost bool
}

// Result is the outcome of a successful run. A publishing failure does not
// invalidate the Review and is reported in PublishErr.
type Result struct {
	PR         *github.PRRef
	Review     *review.Review
	Files      []diffctx.FileStats
	Published  bool
	URL        string
	PublishErr error
}

// Service runs reviews for the CLI and the HTTP server.
type Service struct {
	runner   Runner
	gh       GitHub
	defaults orchestrator.Options
	exclude  []string
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	jobs    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures a Service.
type Option func(*Service)

// WithDefaults sets the run options used where a request leaves them zero.
func WithDefaults(o orchestrator.Options) Option {
	return func(s *Service) { s.defaults = o }
}

// WithExclude drops files matching the globs before review.
func WithExclude(globs []string) Option {
	return func(s *Service) { s.exclude = globs }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records publish outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxJobs bounds the number of background reviews in flight.
func WithMaxJobs(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobs = make(chan struct{}, n)
		}
	}
}

// New returns a Service. gh may be nil when only plain diffs are reviewed.
func New(runner Runner, gh GitHub, opts ...Option) *Service {
	s := &Service{
		runner: runner,
		gh:     gh,
		logger: slog.New(slog.DiscardHandler),
		jobs:   make(chan struct{}, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// CanPublish reports whether PR reviews can be fetched and posted.
func (s *Service) CanPublish() bool { return s.gh != nil }

// Review runs one review synchronously.
func (s *Service) Review(ctx context.Context, req Request) (*Result, error) {
	d, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}
	d = d.Filter(s.exclude)
	if d.IsEmpty() {
		return nil, specialist.ErrEmptyDiff
	}

	rev, err := s.runner.Run(ctx, d, s.options(req.Options))
	if err != nil {
		return nil, err
	}

	res := &Result{PR: req.PR, Review: rev, Files: d.Stats()}
	if req.AutoPost && req.PR != nil {
		s.publish(ctx, *req.PR, rev, d, res)
	}
	return res, nil
}

func (s *Service) target(ctx context.Context, req Request) (*diffctx.Context, error) {
	if req.PR == nil {
		if req.Diff == nil {
			return nil, ErrNoTarget
		}
		return req.Diff, nil
	}
	if s.gh == nil {
		return nil, ErrGitHubUnavailable
	}
	raw, err := s.gh.FetchDiff(ctx, *req.PR)
	if err != nil {
		return nil, err
	}
	d, err := diffctx.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing diff of %s: %w", req.PR, err)
	}
	d.Source = "github-pr"
	d.Ref = req.PR.String()
	return d, nil
}

func (s *Service) publish(ctx context.Context, ref github.PRRef, rev *review.Review, d *diffctx.Context, res *Result) {
	if s.gh == nil {
		res.PublishErr = ErrGitHubUnavailable
		return
	}
	ctx, span := telemetry.StartPublishSpan(ctx, ref.FullName(), ref.Number)
	pub, err := s.gh.Publish(ctx, ref, rev, d)
	telemetry.EndSpan(span, err)
	s.metrics.RecordPublish(ctx, err == nil)
	if err != nil {
		s.logger.Warn("publishing review failed", "pr", ref.String(), "run_id", rev.RunID, "error", err)
		res.PublishErr = err
		return
	}
	s.logger.Info("review published", "pr", ref.String(), "run_id", rev.RunID, "url", pub.URL, "inline", pub.Inline)
	res.Published = true
	res.URL = pub.URL
}

// options fills the zero fields of o from the service defaults.
func (s *Service) options(o orchestrator.Options) orchestrator.Options {
	d := s.defaults
	if len(o.Specialists) == 0 {
		o.Specialists = d.Specialists
	}
	if o.SpecialistTimeout <= 0 {
		o.SpecialistTimeout = d.SpecialistTimeout
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = d.RunTimeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = d.RetryAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.MaxActions <= 0 {
		o.MaxActions = d.MaxActions
	}
	return o
}

// Submit starts req in the background and returns its job ID. The job
// outlives the caller's request; it is cancelled only when Shutdown gives up
// waiting.
func (s *Service) Submit(req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrShuttingDown
	}
	select {
	case s.jobs <- struct{}{}:
	default:
		return "", ErrQueueFull
	}

	id := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.jobs }()
		s.runJob(id, req)
	}()
	return id, nil
}

func (s *Service) runJob(id string, req Request) {
	log := s.logger.With("job_id", id)
	if req.PR != nil {
		log = log.With("pr", req.PR.String())
	}
	start := time.Now()
	log.Info("background review started")

	res, err := s.Review(s.baseCtx, req)
	if err != nil {
		log.Error("background review failed", "duration", time.Since(start), "error", err)
		return
	}
	log.Info("background review finished",
		"run_id", res.Review.RunID,
		"comments", len(res.Review.Comments),
		"degraded", res.Review.Degraded,
		"published", res.Published,
		"duration", time.Since(start),
	)
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first, running jobs are cancelled and ctx's error is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
