package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for health monitoring.
type Server struct {
	reporter *Reporter
	server   *http.Server
}

// NewServer creates a new health server.
func NewServer(reporter *Reporter, port int) *Server {
	s := &Server{
		reporter: reporter,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.server.Handler = s.Handler()
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", recoverer(s.handleHealth))
	mux.HandleFunc("/health/detailed", recoverer(s.handleDetailed))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.reporter.Check(r.Context())
	writeJSON(w, httpStatus(report.Status), report)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.reporter.Detailed(r.Context())
	writeJSON(w, httpStatus(report.Status), report)
}

func httpStatus(status SystemStatus) int {
	if status == StatusError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("Failed to write health response", "error", err)
	}
}

// recoverer turns a panic while building a report into an ERROR response.
func recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Health handler panicked", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status":    StatusError,
					"message":   "Health check failed",
					"timestamp": time.Now().UTC(),
				})
			}
		}()
		next(w, r)
	}
}
