package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/specialist"
	"github.com/dshills/panel/internal/telemetry"
)

const (
	DefaultSpecialistTimeout = 60 * time.Second
	DefaultRunTimeout        = 180 * time.Second
	DefaultMaxParallel       = 8
	defaultRetryDelay        = 500 * time.Millisecond
)

// ErrRunTimeout is recorded for specialists still pending when the run
// deadline passes.
var ErrRunTimeout = errors.New("cancelled at run timeout")

// Analyzer runs one specialist over a diff. *specialist.Client implements it.
type Analyzer interface {
	Analyze(ctx context.Context, category review.Category, d *diffctx.Context, timeout time.Duration) ([]review.Finding, error)
}

// Options configures a single run. Zero values select defaults.
type Options struct {
	// Specialists to dispatch. Empty means every category. Duplicates are
	// dropped and the list is put in declaration order.
	Specialists       []review.Category
	SpecialistTimeout time.Duration
	RunTimeout        time.Duration
	// RetryAttempts is the total number of calls allowed per specialist
	// for retryable upstream failures. Values below 2 disable retries.
	RetryAttempts int
	RetryDelay    time.Duration
	MaxActions    int
}

func (o Options) withDefaults() (Options, error) {
	seen := make(map[review.Category]bool)
	for _, c := range o.Specialists {
		if review.CategoryIndex(c) < 0 {
			return o, fmt.Errorf("unknown specialist %q", c)
		}
		seen[c] = true
	}
	ordered := make([]review.Category, 0, len(review.Categories))
	for _, c := range review.Categories {
		if len(o.Specialists) == 0 || seen[c] {
			ordered = append(ordered, c)
		}
	}
	o.Specialists = ordered

	if o.SpecialistTimeout <= 0 {
		o.SpecialistTimeout = DefaultSpecialistTimeout
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = DefaultRunTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.MaxActions <= 0 {
		o.MaxActions = review.DefaultMaxActions
	}
	return o, nil
}

// Orchestrator fans a diff out to specialists and aggregates their
// findings. It is safe for concurrent use; all runs share one worker pool.
type Orchestrator struct {
	analyzer Analyzer
	pool     *semaphore.Weighted
	similar  review.Similarity
	relevant func(review.Category, *diffctx.Context) bool
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxParallel bounds the number of specialist calls in flight across
// all runs.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pool = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records run and specialist outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSimilarity replaces the message equivalence used by aggregation.
func WithSimilarity(s review.Similarity) Option {
	return func(o *Orchestrator) { o.similar = s }
}

// WithRouting replaces the predicate deciding whether a specialist is
// dispatched for a diff.
func WithRouting(fn func(review.Category, *diffctx.Context) bool) Option {
	return func(o *Orchestrator) { o.relevant = fn }
}

// New returns an Orchestrator dispatching to a.
func New(a Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		analyzer: a,
		pool:     semaphore.NewWeighted(DefaultMaxParallel),
		relevant: specialist.Relevant,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is the result slot of one dispatched specialist.
type outcome struct {
	findings []review.Finding
	err      error
	done     bool
}

// Run reviews d with the selected specialists and returns the aggregated
// Review. It fails with *OrchestrationError when no dispatched specialist
// succeeds and with *review.AggregationError when a finding is invalid.
func (o *Orchestrator) Run(ctx context.Context, d *diffctx.Context, opts Options) (*review.Review, error) {
	if d.IsEmpty() {
		return nil, specialist.ErrEmptyDiff
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	fsm, err := newRunMachine(runID)
	if err != nil {
		return nil, err
	}
	log := o.logger.With("run_id", runID)
	start := time.Now()

	ctx, span := telemetry.StartRunSpan(ctx, runID, len(opts.Specialists))
	o.metrics.RecordStart(ctx)

	rev, err := o.run(ctx, log, fsm, runID, d, opts)

	telemetry.EndSpan(span, err)
	o.metrics.RecordRun(ctx, err == nil, rev != nil && rev.Degraded, time.Since(start).Seconds())
	if err != nil {
		log.Error("review run failed", "state", fsm.current(), "duration", time.Since(start), "error", err)
		return nil, err
	}
	log.Info("review run finished",
		"state", fsm.current(),
		"comments", len(rev.Comments),
		"specialists", len(rev.Specialists),
		"degraded", rev.Degraded,
		"duration", time.Since(start),
	)
	return rev, nil
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, fsm *runMachine, runID string, d *diffctx.Context, opts Options) (*review.Review, error) {
	var notes []review.Note
	var tasks []review.Category
	for _, c := range opts.Specialists {
		if !o.relevant(c, d) {
			notes = append(notes, review.Note{
				Kind:     review.NoteSkipped,
				Category: c,
				Message:  "not applicable to the changed files",
			})
			o.metrics.RecordSpecialist(ctx, string(c), "skipped")
			continue
		}
		tasks = append(tasks, c)
	}

	o.step(log, fsm, eventDispatch)
	log.Debug("dispatching specialists", "specialists", tasks, "skipped", len(notes), "run_timeout", opts.RunTimeout)

	runCtx, cancel := context.WithTimeout(ctx, opts.RunTimeout)
	defer cancel()

	results := make([]outcome, len(tasks))
	var mu sync.Mutex
	closed := false
	var wg sync.WaitGroup
	for i, c := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			findings, err := o.dispatch(runCtx, c, d, opts)
			mu.Lock()
			defer mu.Unlock()
			if closed {
				log.Debug("dropping late specialist result", "category", c)
				return
			}
			results[i] = outcome{findings: findings, err: err, done: true}
		}()
	}
	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-runCtx.Done():
	}
	mu.Lock()
	closed = true
	snapshot := append([]outcome(nil), results...)
	mu.Unlock()
	cancel()

	if errors.Is(ctx.Err(), context.Canceled) {
		o.step(log, fsm, eventJoinFailed)
		o.step(log, fsm, eventAbort)
		return nil, fmt.Errorf("review run %s cancelled: %w", runID, ctx.Err())
	}

	var contributions []review.Finding
	var succeeded []review.Category
	var failures []Failure
	pending := 0
	for i, c := range tasks {
		r := snapshot[i]
		switch {
		case !r.done:
			pending++
			failures = append(failures, Failure{Category: c, Err: ErrRunTimeout})
			notes = append(notes, review.Note{Kind: review.NoteFailed, Category: c, Message: ErrRunTimeout.Error()})
			o.metrics.RecordSpecialist(ctx, string(c), "cancelled")
		case r.err != nil:
			failures = append(failures, Failure{Category: c, Err: r.err})
			notes = append(notes, review.Note{Kind: review.NoteFailed, Category: c, Message: r.err.Error()})
			o.metrics.RecordSpecialist(ctx, string(c), "failed")
			log.Warn("specialist failed", "category", c, "error", r.err)
		default:
			contributions = append(contributions, r.findings...)
			succeeded = append(succeeded, c)
			o.metrics.RecordSpecialist(ctx, string(c), "ok")
		}
	}
	timedOut := pending > 0
	if timedOut {
		notes = append(notes, review.Note{
			Kind:    review.NoteRunTimeout,
			Message: fmt.Sprintf("run timeout of %s elapsed with %d of %d specialists pending", opts.RunTimeout, pending, len(tasks)),
		})
		log.Warn("run timeout reached", "pending", pending, "run_timeout", opts.RunTimeout)
	}

	// A skipped specialist is an empty success, so the run only fails when
	// every specialist was dispatched and none came back.
	skipped := len(opts.Specialists) - len(tasks)
	if len(tasks) > 0 && len(succeeded) == 0 && skipped == 0 {
		o.step(log, fsm, eventJoinFailed)
		o.step(log, fsm, eventAbort)
		return nil, &OrchestrationError{
			Kind:     KindAllSpecialistsFailed,
			RunID:    runID,
			TimedOut: timedOut,
			Failures: failures,
		}
	}
	if len(failures) == 0 {
		o.step(log, fsm, eventJoinComplete)
	} else {
		o.step(log, fsm, eventJoinPartial)
	}

	agg := review.Aggregator{MaxActions: opts.MaxActions, Similar: o.similar}
	rev, err := agg.Aggregate(contributions)
	if err != nil {
		o.step(log, fsm, eventReject)
		return nil, fmt.Errorf("aggregating run %s: %w", runID, err)
	}
	o.step(log, fsm, eventAggregate)

	rev.RunID = runID
	rev.Specialists = succeeded
	rev.Notes = notes
	rev.Degraded = len(failures) > 0
	return rev, nil
}

// dispatch runs one specialist on a worker pool slot.
func (o *Orchestrator) dispatch(ctx context.Context, c review.Category, d *diffctx.Context, opts Options) ([]review.Finding, error) {
	if err := o.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.pool.Release(1)

	ctx, span := telemetry.StartSpecialistSpan(ctx, string(c))
	findings, err := o.analyze(ctx, c, d, opts)
	telemetry.EndSpan(span, err)
	return findings, err
}

// analyze calls the specialist, retrying only retryable upstream failures.
func (o *Orchestrator) analyze(ctx context.Context, c review.Category, d *diffctx.Context, opts Options) ([]review.Finding, error) {
	if opts.RetryAttempts < 2 {
		return o.analyzer.Analyze(ctx, c, d, opts.SpecialistTimeout)
	}

	var permanent error
	r := retry.New[[]review.Finding](retry.Config{
		MaxAttempts:   opts.RetryAttempts,
		InitialDelay:  opts.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	findings, err := r.Do(ctx, func(ctx context.Context) ([]review.Finding, error) {
		f, err := o.analyzer.Analyze(ctx, c, d, opts.SpecialistTimeout)
		if err != nil && !specialist.IsRetryable(err) {
			// Stop retrying; the error is returned after Do.
			permanent = err
			return nil, nil
		}
		if err != nil {
			o.logger.Debug("retrying specialist", "category", c, "error", err)
		}
		return f, err
	})
	if permanent != nil {
		return nil, permanent
	}
	return findings, err
}

func (o *Orchestrator) step(log *slog.Logger, fsm *runMachine, event string) {
	before := fsm.current()
	if err := fsm.transition(event); err != nil {
		log.Warn("run state transition rejected", "error", err)
		return
	}
	log.Debug("run state", "from", before, "to", fsm.current(), "event", event)
}
