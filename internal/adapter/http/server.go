package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-map/internal/charts"
	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/mapview"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	contentTypeJSON = "application/json"
	contentTypeSVG  = "image/svg+xml"
)

// MapController is the map state the server exposes.
type MapController interface {
	State() mapview.MapState
	Years() []int
	SetYear(ctx context.Context, year int) error
	SetMetric(ctx context.Context, metric string) error
	OnZoom(ctx context.Context, t mapview.ZoomTransform) error
	Hover(ctx context.Context, t mapview.Target) (mapview.Tooltip, error)
	Leave(ctx context.Context) error
	CheckReadiness(ctx context.Context) error
}

// MapDocument serves the most recently rendered map.
type MapDocument interface {
	Latest() ([]byte, mapview.Frame, bool)
}

// ChartRenderer draws a named chart as SVG.
type ChartRenderer interface {
	Render(ctx context.Context, name string, req charts.Request) ([]byte, error)
}

// Server exposes the map, the charts, and health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	ctrl       MapController
	doc        MapDocument
	charts     ChartRenderer
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, ctrl MapController, doc MapDocument, chartRenderer ChartRenderer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ctrl:   ctrl,
		doc:    doc,
		charts: chartRenderer,
		logger: logger,
	}

	mux.HandleFunc("GET /map.svg", s.handleMapSVG)
	mux.HandleFunc("GET /map/state", s.handleState)
	mux.HandleFunc("GET /map/years", s.handleYears)
	mux.HandleFunc("GET /map/metrics", s.handleMetrics)
	mux.HandleFunc("POST /map/year", s.handleSetYear)
	mux.HandleFunc("POST /map/metric", s.handleSetMetric)
	mux.HandleFunc("POST /map/zoom", s.handleZoom)
	mux.HandleFunc("GET /map/tooltip", s.handleHover)
	mux.HandleFunc("DELETE /map/tooltip", s.handleLeave)
	mux.HandleFunc("GET /charts/{file}", s.handleChart)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ctrl))
	mux.Handle("GET /metrics", promhttp.Handler())

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

func (s *Server) handleMapSVG(w http.ResponseWriter, _ *http.Request) {
	doc, _, ok := s.doc.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, domain.ErrNotReady)
		return
	}
	w.Header().Set("Content-Type", contentTypeSVG)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(doc) //nolint:errcheck // client went away
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	st := s.ctrl.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"years":    s.ctrl.Years(),
		"selected": st.Year,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": domain.Metrics(),
		"current": s.ctrl.State().Metric.Key,
	})
}

func (s *Server) handleSetYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("year must be an integer"))
		return
	}
	if err := s.ctrl.SetYear(r.Context(), year); err != nil {
		s.writeMapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleSetMetric(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		writeError(w, http.StatusBadRequest, errors.New("metric is required"))
		return
	}
	if err := s.ctrl.SetMetric(r.Context(), metric); err != nil {
		s.writeMapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := mapview.Identity()
	for _, p := range []struct {
		key string
		dst *float64
	}{{"k", &t.K}, {"x", &t.X}, {"y", &t.Y}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New(p.key+" must be a number"))
			return
		}
		*p.dst = v
	}
	if err := s.ctrl.OnZoom(r.Context(), t); err != nil {
		s.writeMapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.State().Transform)
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := mapview.Target{FeatureID: q.Get("feature"), Country: q.Get("country")}
	if target.FeatureID == "" && target.Country == "" {
		writeError(w, http.StatusBadRequest, errors.New("feature or country is required"))
		return
	}
	tip, err := s.ctrl.Hover(r.Context(), target)
	if err != nil {
		s.writeMapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tip)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Leave(r.Context()); err != nil {
		s.writeMapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	req := charts.Request{Country: q.Get("country"), Metric: q.Get("metric")}
	if raw := q.Get("years"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("years must be a positive integer"))
			return
		}
		req.Years = n
	}

	svg, err := s.charts.Render(r.Context(), name, req)
	switch {
	case errors.Is(err, charts.ErrUnknownChart):
		writeError(w, http.StatusNotFound, err)
		return
	case errors.Is(err, domain.ErrUnknownMetric):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "no data",
			"error":  err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", contentTypeSVG)
	w.WriteHeader(http.StatusOK)
	w.Write(svg) //nolint:errcheck // client went away
}

// writeMapError maps controller errors onto status codes.
func (s *Server) writeMapError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnknownYear), errors.Is(err, domain.ErrUnknownMetric):
		status = http.StatusBadRequest
	case errors.Is(err, mapview.ErrUnknownTarget):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStaleResponse):
		status = http.StatusConflict
	default:
		s.logger.Warn("map update failed", "error", err)
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
