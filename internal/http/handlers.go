package http

import (
	"context"
	"net/http"
	"time"

	"atelier/internal/middleware/trace"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(struct {
		Status    string        `json:"status"`
		Timestamp string        `json:"timestamp"`
		Uptime    string        `json:"uptime"`
		Requests  trace.Metrics `json:"requests"`
	}{
		Status:    "ok",
		Timestamp: s.now().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Requests:  s.tracer.GetMetrics(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	if s.backend != nil {
		if err := s.backend.Ping(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}
