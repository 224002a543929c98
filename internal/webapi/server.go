// Package webapi exposes the MCP endpoint, the tool registry and the GEO
// flows over HTTP.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/geo-agent/geo-mcp-server/internal/geo"
	"github.com/geo-agent/geo-mcp-server/internal/mcp"
	"github.com/geo-agent/geo-mcp-server/internal/telemetry"
	"github.com/geo-agent/geo-mcp-server/internal/toolerr"
	"github.com/geo-agent/geo-mcp-server/internal/version"
)

const maxBody = 2 << 20

// StatsSource reports per-tool counters.
type StatsSource interface {
	Stats(ctx context.Context) (map[string]telemetry.ToolStat, error)
}

// Options wires the server.
type Options struct {
	MCP      *mcp.Server
	Pipeline *geo.Pipeline
	Stats    StatsSource
	Token    string
	Logger   *logrus.Entry
	// Timeout bounds each request; zero means five minutes.
	Timeout time.Duration
}

// Server holds the router.
type Server struct {
	router   *chi.Mux
	mcp      *mcp.Server
	pipeline *geo.Pipeline
	stats    StatsSource
	logger   *logrus.Entry
}

// New constructs a Server with middleware and routes configured.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	s := &Server{
		router:   chi.NewRouter(),
		mcp:      opts.MCP,
		pipeline: opts.Pipeline,
		stats:    opts.Stats,
		logger:   logger,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	s.router.Group(func(r chi.Router) {
		r.Use(bearerAuth(opts.Token))
		r.Method(http.MethodPost, "/mcp", s.mcp)
		r.Get("/api/tools", s.handleListTools)
		r.Post("/api/tools/{name}", s.handleCallTool)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/invocations", s.handleInvocations)
		r.Post("/geo/analyze", s.handleAnalyze)
		r.Post("/geo/optimize", s.handleOptimize)
	})

	return s
}

// Handler exposes the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	RespondOK(w, http.StatusOK, version.Get())
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	RespondOK(w, http.StatusOK, map[string]any{"tools": s.mcp.Toolbox().Describe()})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tb := s.mcp.Toolbox()
	if !tb.Has(name) {
		RespondError(w, http.StatusNotFound, "UNKNOWN_TOOL", "unknown tool: "+name)
		return
	}
	args, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(args) > 0 && !json.Valid(args) {
		RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "arguments must be valid JSON")
		return
	}
	result := tb.Call(r.Context(), name, args)
	RespondOK(w, http.StatusOK, map[string]any{"text": result.Text(), "result": result})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		RespondOK(w, http.StatusOK, map[string]any{"tools": map[string]telemetry.ToolStat{}})
		return
	}
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "STATS_UNAVAILABLE", err.Error())
		return
	}
	RespondOK(w, http.StatusOK, map[string]any{"tools": stats})
}

func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	limit := mcp.DefaultHistorySize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer")
			return
		}
		limit = n
	}
	recent := s.mcp.Toolbox().Recent(limit)
	if recent == nil {
		recent = []mcp.Invocation{}
	}
	RespondOK(w, http.StatusOK, map[string]any{"invocations": recent})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGeoRequest(w, r)
	if !ok {
		return
	}
	out, err := s.pipeline.Analyze(r.Context(), req)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	RespondOK(w, http.StatusOK, out)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGeoRequest(w, r)
	if !ok {
		return
	}
	out, err := s.pipeline.Optimize(r.Context(), req)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	RespondOK(w, http.StatusOK, out)
}

func decodeGeoRequest(w http.ResponseWriter, r *http.Request) (geo.Request, bool) {
	var req geo.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return req, false
	}
	return req, true
}

func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	var (
		cfgErr *toolerr.ConfigError
		valErr *toolerr.ValidationError
	)
	switch {
	case errors.Is(err, geo.ErrNothingToAnalyze), errors.Is(err, geo.ErrURLRequired), errors.As(err, &valErr):
		RespondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.As(err, &cfgErr):
		RespondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error())
	default:
		s.logger.WithError(err).Warn("geo flow failed")
		RespondError(w, http.StatusBadGateway, "UPSTREAM_FAILED", err.Error())
	}
}
