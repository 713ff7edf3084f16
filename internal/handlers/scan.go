package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/models"
	"github.com/ternarybob/privascan/internal/storage/postgres"
)

// ScanHandler serves the polling, history, and deletion endpoints.
type ScanHandler struct {
	store  *postgres.JobStore
	logger arbor.ILogger
}

// NewScanHandler creates the poll API handler.
func NewScanHandler(store *postgres.JobStore, logger arbor.ILogger) *ScanHandler {
	return &ScanHandler{store: store, logger: logger}
}

// ScanRoutes dispatches /scan/{id} by method.
func (h *ScanHandler) ScanRoutes(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/scan/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Scan job not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getScan(w, r, id)
	case http.MethodDelete:
		h.deleteScan(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScanHandler) getScan(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.store.FindByID(r.Context(), id)
	if errors.Is(err, postgres.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Scan job not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Job lookup failed")
		WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	var result *models.ScanResult
	if job.Status == models.JobStatusSuccess {
		result, err = h.store.FindResult(r.Context(), id)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", id).Msg("Result lookup failed")
			WriteError(w, http.StatusInternalServerError, "Internal error")
			return
		}
	}

	WriteJSON(w, http.StatusOK, models.JobResponseFrom(job, result))
}

func (h *ScanHandler) deleteScan(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Delete(r.Context(), id)
	switch {
	case errors.Is(err, postgres.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Scan job not found")
	case errors.Is(err, postgres.ErrConflict):
		WriteError(w, http.StatusConflict, "Cannot delete a running scan")
	case err != nil:
		h.logger.Error().Err(err).Str("job_id", id).Msg("Job deletion failed")
		WriteError(w, http.StatusInternalServerError, "Internal error")
	default:
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "jobId": id})
	}
}

// ListScansHandler handles GET /scans with URL/status filters and
// pagination.
func (h *ScanHandler) ListScansHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	filter := models.ListFilter{
		URL:    r.URL.Query().Get("url"),
		Status: models.JobStatus(r.URL.Query().Get("status")),
		Page:   QueryInt(r, "page", 1),
		Limit:  QueryInt(r, "limit", models.DefaultPageLimit),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		WriteError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}
	filter.Normalize()

	jobs, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Job listing failed")
		WriteError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	data := make([]models.JobResponse, 0, len(jobs))
	for i := range jobs {
		data = append(data, models.JobResponseFrom(&jobs[i], nil))
	}

	WriteJSON(w, http.StatusOK, models.JobListResponse{
		Data:       data,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	})
}
