package models

import "time"

// AnalyzeRequest is the submission body for POST /analyze.
type AnalyzeRequest struct {
	URL string `json:"url" validate:"required,min=1,max=2048"`
}

// AnalyzeResponse is returned on accept, coalesce, or cache hit.
type AnalyzeResponse struct {
	JobID    string     `json:"jobId"`
	Status   JobStatus  `json:"status"`
	Cached   bool       `json:"cached"`
	CachedAt *time.Time `json:"cachedAt,omitempty"`
	PollURL  string     `json:"pollUrl"`
	Message  string     `json:"message,omitempty"`
}

// JobResponse is the polling shape for GET /scan/:id.
type JobResponse struct {
	JobID        string       `json:"jobId"`
	TargetURL    string       `json:"targetUrl"`
	Status       JobStatus    `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	StartedAt    *time.Time   `json:"startedAt,omitempty"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	Result       *ScanResult  `json:"result,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// Pagination is the list-response envelope metadata.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// JobListResponse is returned by GET /scans.
type JobListResponse struct {
	Data       []JobResponse `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// ListFilter narrows a history query.
type ListFilter struct {
	URL    string
	Status JobStatus
	Page   int
	Limit  int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps pagination bounds to the API contract.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

// NewPagination computes the envelope for a total row count.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// JobResponseFrom builds the polling shape from a job and optional result.
// The result is attached only for SUCCESS, the error message only for FAILED.
func JobResponseFrom(job *ScanJob, result *ScanResult) JobResponse {
	resp := JobResponse{
		JobID:       job.ID,
		TargetURL:   job.TargetURL,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	switch job.Status {
	case JobStatusSuccess:
		resp.Result = result
	case JobStatusFailed:
		resp.ErrorMessage = job.ErrorMessage
	}
	return resp
}
