package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/dylanvkmns/rqmProject/internal/adapter/store"
	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/dylanvkmns/rqmProject/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Views is the read API backing the /api/v1 routes.
type Views interface {
	Groups() []domain.MetricGroup
	Radars(ctx context.Context) ([]string, error)
	Series(ctx context.Context, radar, group string, r domain.DateRange, opts domain.SeriesOptions) (domain.View, error)
	Dashboard(ctx context.Context, radar string, r domain.DateRange, opts domain.SeriesOptions) ([]domain.View, error)
	Audit(ctx context.Context, r domain.DateRange) ([]view.Finding, error)
}

// Ledger lists recorded ingest batches.
type Ledger interface {
	Batches(ctx context.Context, limit int) ([]store.Batch, error)
}

// Server exposes health, readiness, metrics and the view API.
type Server struct {
	httpServer *http.Server
	views      Views
	ledger     Ledger
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Readiness succeeds only when every
// checker does.
func NewServer(addr string, views Views, ledger Ledger, logger *slog.Logger, ready ...sharedobs.ReadinessChecker) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		views:  views,
		ledger: ledger,
		logger: logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(readinessGroup(ready)))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/groups", s.handleGroups)
		r.Get("/radars", s.handleRadars)
		r.Get("/radars/{radar}/series", s.handleSeries)
		r.Get("/radars/{radar}/dashboard", s.handleDashboard)
		r.Get("/outliers", s.handleOutliers)
		r.Get("/batches", s.handleBatches)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// readinessGroup is ready when every member is.
type readinessGroup []sharedobs.ReadinessChecker

func (g readinessGroup) CheckReadiness(ctx context.Context) error {
	for _, c := range g {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.views.Groups())
}

func (s *Server) handleRadars(w http.ResponseWriter, r *http.Request) {
	radars, err := s.views.Radars(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if radars == nil {
		radars = []string{}
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"radars": radars})
}

// seriesResponse echoes the requested range next to the view.
type seriesResponse struct {
	domain.View
	Range rangeJSON `json:"range"`
}

type dashboardResponse struct {
	Radar string        `json:"radar"`
	Range rangeJSON     `json:"range"`
	Views []domain.View `json:"views"`
}

type rangeJSON struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	group := r.URL.Query().Get("group")
	if group == "" {
		writeError(w, r, http.StatusBadRequest, "group is required")
		return
	}

	v, err := s.views.Series(r.Context(), chi.URLParam(r, "radar"), group, q.window, q.opts)
	if errors.Is(err, domain.ErrUnknownGroup) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, seriesResponse{View: v, Range: q.echo})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	radar := chi.URLParam(r, "radar")
	views, err := s.views.Dashboard(r.Context(), radar, q.window, q.opts)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dashboardResponse{Radar: radar, Range: q.echo, Views: views})
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	q, ok := s.parseQuery(w, r)
	if !ok {
		return
	}
	findings, err := s.views.Audit(r.Context(), q.window)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if findings == nil {
		findings = []view.Finding{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"range": q.echo, "findings": findings})
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	batches, err := s.ledger.Batches(r.Context(), limit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if batches == nil {
		batches = []store.Batch{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"batches": batches})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}
