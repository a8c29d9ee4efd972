package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/github"
	"github.com/dshills/panel/internal/orchestrator"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/specialist"
)

const testDiff = `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,1 +1,2 @@
 package main
+var x = 1
diff --git a/vendor/lib.go b/vendor/lib.go
--- a/vendor/lib.go
+++ b/vendor/lib.go
@@ -1,1 +1,2 @@
 package lib
+var y = 2
`

type fakeRunner struct {
	mu    sync.Mutex
	opts  orchestrator.Options
	paths []string
	err   error
	block chan struct{}
	calls atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, d *diffctx.Context, opts orchestrator.Options) (*review.Review, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.opts = opts
	f.paths = d.Paths()
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &review.Review{RunID: "run-1"}, nil
}

type fakeGitHub struct {
	diff       string
	fetchErr   error
	publishErr error
	published  atomic.Int32
}

func (g *fakeGitHub) FetchDiff(context.Context, github.PRRef) (string, error) {
	return g.diff, g.fetchErr
}

func (g *fakeGitHub) Publish(_ context.Context, ref github.PRRef, _ *review.Review, _ *diffctx.Context) (github.Published, error) {
	if g.publishErr != nil {
		return github.Published{}, g.publishErr
	}
	g.published.Add(1)
	return github.Published{ID: 1, URL: ref.URL() + "#review"}, nil
}

var testRef = &github.PRRef{Owner: "acme", Repo: "web", Number: 3}

func TestReview_PR(t *testing.T) {
	runner := &fakeRunner{}
	gh := &fakeGitHub{diff: testDiff}
	s := New(runner, gh,
		WithExclude([]string{"vendor/**"}),
		WithDefaults(orchestrator.Options{RunTimeout: time.Minute, MaxActions: 5}),
	)

	res, err := s.Review(context.Background(), Request{
		PR:       testRef,
		Options:  orchestrator.Options{MaxActions: 2},
		AutoPost: true,
	})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if !res.Published || res.URL == "" || res.PublishErr != nil {
		t.Errorf("Result = %+v", res)
	}
	if len(runner.paths) != 1 || runner.paths[0] != "main.go" {
		t.Errorf("reviewed paths = %v, want [main.go]", runner.paths)
	}
	if runner.opts.RunTimeout != time.Minute || runner.opts.MaxActions != 2 {
		t.Errorf("options = %+v, want defaults merged under request values", runner.opts)
	}
	if len(res.Files) != 1 {
		t.Errorf("Files = %+v", res.Files)
	}
}

func TestReview_PublishFailureKeepsReview(t *testing.T) {
	gh := &fakeGitHub{diff: testDiff, publishErr: errors.New("422")}
	res, err := New(&fakeRunner{}, gh).Review(context.Background(), Request{PR: testRef, AutoPost: true})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if res.Review == nil || res.Published || res.PublishErr == nil {
		t.Errorf("Result = %+v, want review kept and PublishErr set", res)
	}
}

func TestReview_NoAutoPost(t *testing.T) {
	gh := &fakeGitHub{diff: testDiff}
	if _, err := New(&fakeRunner{}, gh).Review(context.Background(), Request{PR: testRef}); err != nil {
		t.Fatal(err)
	}
	if gh.published.Load() != 0 {
		t.Error("review must not be posted without AutoPost")
	}
}

func TestReview_Errors(t *testing.T) {
	d, _ := diffctx.Parse(testDiff)
	empty, _ := diffctx.Parse("")
	runErr := errors.New("all failed")

	tests := []struct {
		name   string
		s      *Service
		req    Request
		target error
	}{
		{"no target", New(&fakeRunner{}, nil), Request{}, ErrNoTarget},
		{"no github", New(&fakeRunner{}, nil), Request{PR: testRef}, ErrGitHubUnavailable},
		{"fetch error", New(&fakeRunner{}, &fakeGitHub{fetchErr: github.ErrNotFound}), Request{PR: testRef}, github.ErrNotFound},
		{"empty diff", New(&fakeRunner{}, nil), Request{Diff: empty}, specialist.ErrEmptyDiff},
		{"all excluded", New(&fakeRunner{}, nil, WithExclude([]string{"*.go", "vendor/**"})), Request{Diff: d}, specialist.ErrEmptyDiff},
		{"run error", New(&fakeRunner{err: runErr}, nil), Request{Diff: d}, runErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.s.Review(context.Background(), tt.req)
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestSubmit_RunsInBackground(t *testing.T) {
	gh := &fakeGitHub{diff: testDiff}
	s := New(&fakeRunner{}, gh)
	if _, err := s.Submit(Request{PR: testRef, AutoPost: true}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	if gh.published.Load() != 1 {
		t.Errorf("published = %d, want 1", gh.published.Load())
	}
	if _, err := s.Submit(Request{PR: testRef}); !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Submit after Shutdown err = %v", err)
	}
}

func TestSubmit_QueueFull(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := New(runner, &fakeGitHub{diff: testDiff}, WithMaxJobs(1))

	if _, err := s.Submit(Request{PR: testRef}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(Request{PR: testRef}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	close(runner.block)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestShutdown_CancelsAfterDeadline(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := New(runner, &fakeGitHub{diff: testDiff})
	if _, err := s.Submit(Request{PR: testRef}); err != nil {
		t.Fatal(err)
	}
	for runner.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown err = %v, want deadline exceeded", err)
	}
}
