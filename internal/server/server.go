package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/panel/internal/config"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/service"
	"github.com/dshills/panel/internal/telemetry"
)

// Reviewer is the part of *service.Service the HTTP handlers use.
type Reviewer interface {
	Review(ctx context.Context, req service.Request) (*service.Result, error)
	Submit(req service.Request) (string, error)
	CanPublish() bool
}

// Info describes the running service for the index and health endpoints.
type Info struct {
	Name        string
	Version     string
	Provider    string
	Model       string
	Specialists []review.Category
}

// Server serves the webhook receiver and the review API.
type Server struct {
	svc    Reviewer
	info   Info
	secret []byte
	logger *slog.Logger
}

// New returns a Server. An empty webhookSecret disables the webhook
// receiver.
func New(svc Reviewer, info Info, webhookSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{svc: svc, info: info, secret: []byte(webhookSecret), logger: logger}
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestContext)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhook/github", s.handleWebhook)
		r.Get("/webhook/health", s.handleWebhookHealth)
		r.Post("/review/multi/pr", s.handleReviewPR)
	})

	return telemetry.HTTPMiddleware(s.info.Name)(r)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts the
// listener down within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.Server) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
