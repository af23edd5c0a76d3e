package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roadwatch/datex-zone-monitor/internal/monitor"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StreakReader reports consecutive failed cycles per zone, so the zone list
// can flag degraded (stale but retained) data.
type StreakReader interface {
	FailureStreak(zone string) int
}

// ResultReader serves the latest cycle results for the zone endpoints.
type ResultReader interface {
	Get(zone string) (monitor.ZoneResult, bool)
	List() []monitor.ZoneResult
}

// Server exposes health, readiness, metrics, and zone read endpoints.
type Server struct {
	httpServer *http.Server
	results    ResultReader
	streaks    StreakReader
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /zones routes.
func NewServer(addr string, ready ReadinessChecker, results ResultReader, streaks StreakReader, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		results: results,
		streaks: streaks,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /zones", s.handleZones)
	mux.HandleFunc("GET /zones/{name}", s.handleZone)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// zoneSummary is the list form of a zone result: identity and aggregates,
// without the per-record delta payload.
type zoneSummary struct {
	Zone          string        `json:"zone"`
	Kind          string        `json:"kind"`
	CycleTime     time.Time     `json:"cycle_time"`
	Stats         monitor.Stats `json:"stats"`
	FailureStreak int           `json:"failure_streak"`
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	results := s.results.List()
	summaries := make([]zoneSummary, 0, len(results))
	for _, res := range results {
		summary := zoneSummary{
			Zone:      res.Zone,
			Kind:      string(res.Kind),
			CycleTime: res.CycleTime,
			Stats:     res.Stats,
		}
		if s.streaks != nil {
			summary.FailureStreak = s.streaks.FailureStreak(res.Zone)
		}
		summaries = append(summaries, summary)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	res, ok := s.results.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no result for zone " + name,
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
