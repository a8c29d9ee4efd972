package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/github"
	"github.com/dshills/panel/internal/logger"
	"github.com/dshills/panel/internal/orchestrator"
	"github.com/dshills/panel/internal/review"
	"github.com/dshills/panel/internal/service"
	"github.com/dshills/panel/internal/specialist"
)

const webhookBodyLimit = 25 << 20

type specialistInfo struct {
	Category    review.Category `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var specs []specialistInfo
	for _, c := range s.info.Specialists {
		p, ok := specialist.ProfileFor(c)
		if !ok {
			continue
		}
		specs = append(specs, specialistInfo{Category: c, Name: p.Name, Description: p.Description})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    s.info.Name,
		"version": s.info.Version,
		"endpoints": map[string]string{
			"health":         "GET /health",
			"webhook":        "POST /api/v1/webhook/github",
			"webhook_health": "GET /api/v1/webhook/health",
			"review_pr":      "POST /api/v1/review/multi/pr",
		},
		"specialists": specs,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                    "healthy",
		"version":                   s.info.Version,
		"provider":                  s.info.Provider,
		"model":                     s.info.Model,
		"github_configured":         s.svc.CanPublish(),
		"webhook_secret_configured": len(s.secret) > 0,
	})
}

func (s *Server) handleWebhookHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if len(s.secret) == 0 || !s.svc.CanPublish() {
		status = "unconfigured"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                    status,
		"github_configured":         s.svc.CanPublish(),
		"webhook_secret_configured": len(s.secret) > 0,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)
	if len(s.secret) == 0 {
		writeError(w, http.StatusServiceUnavailable, "webhook secret is not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if err := github.VerifySignature(r.Header.Get(github.SignatureHeader), payload, s.secret); err != nil {
		log.Warn("rejected webhook", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	ev, err := github.ParsePullRequestEvent(eventType, payload)
	if errors.Is(err, github.ErrIgnoredEvent) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": err.Error()})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.svc.CanPublish() {
		writeError(w, http.StatusServiceUnavailable, "GitHub token is not configured")
		return
	}

	ref := ev.Ref
	jobID, err := s.svc.Submit(service.Request{PR: &ref, AutoPost: true})
	if err != nil {
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	log.Info("webhook review queued", "pr", ref.String(), "action", ev.Action, "job_id", jobID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"job_id": jobID,
		"pr_url": ev.HTMLURL,
	})
}

type reviewPRRequest struct {
	PRURL       string   `json:"pr_url"`
	AutoPost    bool     `json:"auto_post"`
	Specialists []string `json:"specialists,omitempty"`
}

type reviewPRResponse struct {
	PRNumber       int                 `json:"pr_number"`
	PRURL          string              `json:"pr_url"`
	Repository     string              `json:"repository"`
	Review         *review.Review      `json:"review"`
	Files          []diffctx.FileStats `json:"files,omitempty"`
	PostedToGitHub bool                `json:"posted_to_github"`
	ReviewURL      string              `json:"review_url,omitempty"`
	PublishError   string              `json:"publish_error,omitempty"`
}

func (s *Server) handleReviewPR(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[reviewPRRequest](w, r)
	if !ok {
		return
	}
	ref, err := github.ParsePRURL(req.PRURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var cats []review.Category
	for _, name := range req.Specialists {
		c, err := review.ParseCategory(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cats = append(cats, c)
	}

	res, err := s.svc.Review(r.Context(), service.Request{
		PR:       &ref,
		Options:  orchestrator.Options{Specialists: cats},
		AutoPost: req.AutoPost,
	})
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Error("review failed", "pr", ref.String(), "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := reviewPRResponse{
		PRNumber:       ref.Number,
		PRURL:          ref.URL(),
		Repository:     ref.FullName(),
		Review:         res.Review,
		Files:          res.Files,
		PostedToGitHub: res.Published,
		ReviewURL:      res.URL,
	}
	if res.PublishErr != nil {
		resp.PublishError = res.PublishErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps a review error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, specialist.ErrEmptyDiff), errors.Is(err, github.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrAllSpecialistsFailed), errors.Is(err, github.ErrUnauthorized):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrGitHubUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
