package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/ingress"
	"github.com/ternarybob/privascan/internal/metrics"
	"github.com/ternarybob/privascan/internal/models"
)

// AnalyzeHandler accepts scan submissions.
type AnalyzeHandler struct {
	service  *ingress.Service
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   arbor.ILogger
}

// NewAnalyzeHandler creates the submission handler.
func NewAnalyzeHandler(service *ingress.Service, m *metrics.Metrics, logger arbor.ILogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		service:  service,
		validate: validator.New(),
		metrics:  m,
		logger:   logger,
	}
}

// AnalyzeHandler handles POST /analyze. 202 on accept or coalesce, 200 on a
// cache hit, 400 on validation or policy rejection.
func (h *AnalyzeHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, common.ClientMessage(common.ErrURLMissing))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.metrics.ValidationError()
		WriteError(w, http.StatusBadRequest, common.ClientMessage(common.ErrURLMissing))
		return
	}

	admission, err := h.service.Admit(r.Context(), req.URL)
	if err != nil {
		h.writeAdmissionError(w, err)
		return
	}

	job := admission.Job
	resp := models.AnalyzeResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Cached:  admission.Cached,
		PollURL: "/scan/" + job.ID,
	}

	if admission.Cached {
		h.metrics.ScanCached()
		resp.CachedAt = admission.CachedAt
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	resp.Message = "Scan queued; poll the job for progress"
	WriteJSON(w, http.StatusAccepted, resp)
}

func (h *AnalyzeHandler) writeAdmissionError(w http.ResponseWriter, err error) {
	scanErr, ok := common.AsScanError(err)
	if !ok {
		h.logger.Error().Err(err).Msg("Admission failed")
		WriteError(w, http.StatusInternalServerError, "Internal error, please try again")
		return
	}

	switch {
	case common.IsSSRFCode(scanErr.Code):
		h.metrics.SSRFBlocked()
	case strings.HasPrefix(string(scanErr.Code), "URL_"), strings.HasPrefix(string(scanErr.Code), "DNS_"):
		h.metrics.ValidationError()
	}

	status := http.StatusBadRequest
	if scanErr.Code == common.ErrEnqueueFailed {
		status = http.StatusInternalServerError
	}
	WriteError(w, status, common.ClientMessage(scanErr.Code))
}
