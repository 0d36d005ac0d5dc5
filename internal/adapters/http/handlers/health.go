package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	dbPing func(context.Context) error
}

func NewHealthHandler(dbPing func(context.Context) error) *HealthHandler {
	return &HealthHandler{dbPing: dbPing}
}

type healthComponent struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type healthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]healthComponent `json:"components,omitempty"`
}

// Liveness handles GET /health/live. It only proves the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, healthStatus{Status: "healthy", Timestamp: time.Now().UTC()}, http.StatusOK)
}

// Readiness handles GET /health. The database is checked when configured.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := healthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]healthComponent),
	}

	code := http.StatusOK
	if h.dbPing != nil {
		start := time.Now()
		if err := h.dbPing(ctx); err != nil {
			status.Status = "unhealthy"
			status.Components["database"] = healthComponent{Status: "unhealthy", Message: err.Error()}
			code = http.StatusServiceUnavailable
		} else {
			status.Components["database"] = healthComponent{Status: "healthy", LatencyMs: time.Since(start).Milliseconds()}
		}
	}

	respondJSON(w, status, code)
}
