// internal/handler/health_handler.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Pinger is implemented by every customer repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler holds the dependencies for the liveness and readiness probes
type HealthHandler struct {
	Store  Pinger
	Logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler backed by the given store
func NewHealthHandler(store Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		Store:  store,
		Logger: logger,
	}
}

// Healthz reports that the process is up. It never touches the store.
func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// Readyz reports whether the store answers within readinessTimeout.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.Warn("readiness check failed", zap.Error(err))
		writeStatus(w, http.StatusServiceUnavailable, "unavailable")
		return
	}

	writeStatus(w, http.StatusOK, "ok")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
