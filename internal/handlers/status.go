package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/metrics"
	"github.com/ternarybob/privascan/internal/queue"
	"github.com/ternarybob/privascan/internal/storage/postgres"
)

// StatusHandler serves health, metrics, and version endpoints.
type StatusHandler struct {
	store       *postgres.JobStore
	queue       *queue.Queue
	metrics     *metrics.Metrics
	serviceName string
	logger      arbor.ILogger
}

// NewStatusHandler creates the operational-status handler.
func NewStatusHandler(store *postgres.JobStore, q *queue.Queue, m *metrics.Metrics, serviceName string, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		store:       store,
		queue:       q,
		metrics:     m,
		serviceName: serviceName,
		logger:      logger,
	}
}

// HealthHandler handles GET /health. 200 when all dependencies respond,
// 503 degraded otherwise.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"database": "healthy",
		"queue":    "healthy",
	}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		healthy = false
	}
	if err := h.queue.Ping(ctx); err != nil {
		checks["queue"] = "unhealthy: " + err.Error()
		healthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": h.serviceName,
		"version": common.GetVersion(),
		"checks":  checks,
	})
}

// MetricsHandler handles GET /metrics with the JSON snapshot plus queue
// depth gauges.
func (h *StatusHandler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := h.metrics.Snapshot()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	stats, err := h.queue.GetStats(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Queue stats unavailable for metrics")
		stats = &queue.Stats{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": h.serviceName,
		"process": snapshot,
		"queue":   stats,
	})
}

// VersionHandler handles GET /version.
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"service": h.serviceName,
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
