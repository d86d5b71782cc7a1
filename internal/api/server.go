package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/analysis"
	"github.com/quarrylabs/quarry/internal/store"
	"github.com/quarrylabs/quarry/internal/tasks"
)

// Store is the read/write surface the API consults.
type Store interface {
	CrawlByNetwork(ctx context.Context, networkID string) (*store.Crawl, error)
	CrawlErrors(ctx context.Context, crawlID uuid.UUID) ([]string, error)
	CountActionsByCrawl(ctx context.Context, crawlID uuid.UUID) (int, error)
	CreateAnalysis(ctx context.Context, a *store.Analysis) (uuid.UUID, error)
	AnalysisByID(ctx context.Context, id uuid.UUID) (*store.Analysis, error)
	CountSessionsByAnalysis(ctx context.Context, analysisID uuid.UUID) (int, error)
	TaskStatusByScope(ctx context.Context, taskID uuid.UUID, scope string) (*store.TaskStatus, error)
	ActionContent(ctx context.Context, actionID uuid.UUID) (string, error)
}

// Runner submits background work. Passed in explicitly so handlers never
// reach for a global scheduler.
type Runner interface {
	Submit(t tasks.Task) error
	Cancel(key string) bool
}

// Crawler runs one full crawl of a network.
type Crawler interface {
	Run(ctx context.Context, networkID string) error
}

// Analyzer runs one analysis end to end.
type Analyzer interface {
	Run(ctx context.Context, analysisID uuid.UUID) error
}

type Server struct {
	router   *chi.Mux
	port     int
	store    Store
	runner   Runner
	crawler  Crawler
	analyzer Analyzer
	logger   *slog.Logger
}

func NewServer(port int, st Store, runner Runner, crawler Crawler, analyzer Analyzer, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		store:    st,
		runner:   runner,
		crawler:  crawler,
		analyzer: analyzer,
		logger:   logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/networks/{networkID}", func(r chi.Router) {
		r.Get("/crawl", s.crawlStatus)
		r.Post("/crawl", s.startCrawl)
		r.Delete("/crawl", s.cancelCrawl)
		r.Post("/analyses", s.startAnalysis)
	})
	router.Get("/api/v1/analyses/{analysisID}", s.analysisStatus)
	router.Get("/api/v1/actions/{actionID}/content", s.actionContent)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func crawlKey(networkID string) string { return "crawl:" + networkID }

// CrawlStatusResponse is the queryable state of a network's crawl.
type CrawlStatusResponse struct {
	ID        uuid.UUID `json:"id"`
	NetworkID string    `json:"network_id"`
	State     string    `json:"state"`
	Progress  float64   `json:"progress"`
	Actions   int       `json:"actions"`
	Errors    []string  `json:"errors"`
}

// crawlStatus handles GET /api/v1/networks/{networkID}/crawl
func (s *Server) crawlStatus(w http.ResponseWriter, r *http.Request) {
	networkID := chi.URLParam(r, "networkID")

	crawl, err := s.store.CrawlByNetwork(r.Context(), networkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no crawl for network %s", networkID)
			return
		}
		writeError(w, http.StatusInternalServerError, "load crawl: %v", err)
		return
	}

	count, err := s.store.CountActionsByCrawl(r.Context(), crawl.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "count actions: %v", err)
		return
	}
	msgs, err := s.store.CrawlErrors(r.Context(), crawl.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load crawl errors: %v", err)
		return
	}

	resp := CrawlStatusResponse{
		ID:        crawl.ID,
		NetworkID: crawl.NetworkID,
		State:     crawl.State,
		Actions:   count,
		Errors:    msgs,
	}
	// A finished crawl is 100% regardless of what the status row says;
	// the row may predate completion or be gone entirely.
	if crawl.State == store.CrawlFinished {
		resp.Progress = 100
	} else if st, err := s.store.TaskStatusByScope(r.Context(), crawl.TaskID, "crawl"); err == nil {
		resp.Progress = st.Progress
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// startCrawl handles POST /api/v1/networks/{networkID}/crawl. Starting a
// crawl always discards the network's previous crawl; the submission is
// rejected only when one is already in flight.
func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	networkID := chi.URLParam(r, "networkID")

	err := s.runner.Submit(tasks.Task{
		Key: crawlKey(networkID),
		Run: func(ctx context.Context) error {
			return s.crawler.Run(ctx, networkID)
		},
	})
	switch {
	case errors.Is(err, tasks.ErrDuplicate):
		writeError(w, http.StatusConflict, "crawl already running for network %s", networkID)
		return
	case errors.Is(err, tasks.ErrQueueFull):
		writeError(w, http.StatusServiceUnavailable, "task queue full")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "submit crawl: %v", err)
		return
	}

	s.logger.Info("crawl submitted", "network", networkID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "network_id": networkID})
}

// cancelCrawl handles DELETE /api/v1/networks/{networkID}/crawl. The
// running task observes cancellation cooperatively and marks the crawl
// aborted.
func (s *Server) cancelCrawl(w http.ResponseWriter, r *http.Request) {
	networkID := chi.URLParam(r, "networkID")

	if !s.runner.Cancel(crawlKey(networkID)) {
		writeError(w, http.StatusNotFound, "no running crawl for network %s", networkID)
		return
	}

	s.logger.Info("crawl cancellation requested", "network", networkID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling", "network_id": networkID})
}

// startAnalysis handles POST /api/v1/networks/{networkID}/analyses. The
// network must have a finished crawl; parameters are validated before
// anything is persisted.
func (s *Server) startAnalysis(w http.ResponseWriter, r *http.Request) {
	networkID := chi.URLParam(r, "networkID")

	var params analysis.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameters: %v", err)
		return
	}

	crawl, err := s.store.CrawlByNetwork(r.Context(), networkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no crawl for network %s", networkID)
			return
		}
		writeError(w, http.StatusInternalServerError, "load crawl: %v", err)
		return
	}
	if crawl.State != store.CrawlFinished {
		writeError(w, http.StatusConflict, "crawl for network %s is %s, not finished", networkID, crawl.State)
		return
	}

	analysisID, err := s.store.CreateAnalysis(r.Context(), &store.Analysis{
		CrawlID:             crawl.ID,
		SessionGap:          params.SessionGap,
		RoleCount:           params.RoleCount,
		MaxIterations:       params.MaxIterations,
		ProportionSmoothing: params.ProportionSmoothing,
		RoleSmoothing:       params.RoleSmoothing,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create analysis: %v", err)
		return
	}

	err = s.runner.Submit(tasks.Task{
		Key: "analysis:" + analysisID.String(),
		Run: func(ctx context.Context) error {
			return s.analyzer.Run(ctx, analysisID)
		},
	})
	if err != nil {
		if errors.Is(err, tasks.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "task queue full")
			return
		}
		writeError(w, http.StatusInternalServerError, "submit analysis: %v", err)
		return
	}

	s.logger.Info("analysis submitted", "network", networkID, "analysis_id", analysisID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "analysis_id": analysisID.String()})
}

// PhaseProgress is one scope's latest progress for an analysis.
type PhaseProgress struct {
	Progress      float64  `json:"progress"`
	LogLikelihood *float64 `json:"loglik,omitempty"`
}

// AnalysisStatusResponse is the queryable state of one analysis.
type AnalysisStatusResponse struct {
	ID       uuid.UUID                `json:"id"`
	CrawlID  uuid.UUID                `json:"crawl_id"`
	Finished bool                     `json:"finished"`
	Sessions int                      `json:"sessions"`
	Phases   map[string]PhaseProgress `json:"phases"`
}

// analysisStatus handles GET /api/v1/analyses/{analysisID}
func (s *Server) analysisStatus(w http.ResponseWriter, r *http.Request) {
	analysisID, err := uuid.Parse(chi.URLParam(r, "analysisID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis id: %v", err)
		return
	}

	a, err := s.store.AnalysisByID(r.Context(), analysisID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no analysis %s", analysisID)
			return
		}
		writeError(w, http.StatusInternalServerError, "load analysis: %v", err)
		return
	}

	count, err := s.store.CountSessionsByAnalysis(r.Context(), analysisID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "count sessions: %v", err)
		return
	}

	resp := AnalysisStatusResponse{
		ID:       a.ID,
		CrawlID:  a.CrawlID,
		Finished: a.Finished,
		Sessions: count,
		Phases:   map[string]PhaseProgress{},
	}
	for _, scope := range []string{"sessions", "sampling"} {
		phase := PhaseProgress{}
		st, err := s.store.TaskStatusByScope(r.Context(), a.TaskID, scope)
		if err == nil {
			phase = PhaseProgress{Progress: st.Progress, LogLikelihood: st.LogLikelihood}
		} else if !a.Finished {
			continue
		}
		// Both phases completed if the analysis did, whatever the
		// status rows say.
		if a.Finished {
			phase.Progress = 100
		}
		resp.Phases[scope] = phase
	}

	writeJSON(w, http.StatusOK, resp)
}

// actionContent handles GET /api/v1/actions/{actionID}/content. Action
// listings defer the potentially large text; this is the lazy load.
func (s *Server) actionContent(w http.ResponseWriter, r *http.Request) {
	actionID, err := uuid.Parse(chi.URLParam(r, "actionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid action id: %v", err)
		return
	}

	content, err := s.store.ActionContent(r.Context(), actionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no action %s", actionID)
			return
		}
		writeError(w, http.StatusInternalServerError, "load action content: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": actionID.String(), "content": content})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}
