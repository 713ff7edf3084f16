package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a scan job.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// IsTerminal returns true for SUCCESS and FAILED.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// Valid reports whether the status is one of the known states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusSuccess, JobStatusFailed:
		return true
	}
	return false
}

// RiskLevel buckets a privacy score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskElevated RiskLevel = "ELEVATED"
	RiskHigh     RiskLevel = "HIGH"
)

// ScanJob is the durable record of one analysis request.
type ScanJob struct {
	ID           string     `json:"id"`
	UserID       *string    `json:"userId,omitempty"`
	TargetURL    string     `json:"targetUrl"`
	Status       JobStatus  `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// NewScanJob creates a PENDING job for the given canonical URL.
func NewScanJob(targetURL string) *ScanJob {
	now := time.Now().UTC()
	return &ScanJob{
		ID:        uuid.New().String(),
		TargetURL: targetURL,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ScanResult is the persisted analysis outcome, one-to-one with a SUCCESS job.
type ScanResult struct {
	ID        string    `json:"id"`
	ScanJobID string    `json:"scanJobId"`
	Score     int       `json:"score"`
	RiskLevel RiskLevel `json:"riskLevel"`
	Summary   string    `json:"summary"`

	TrackerCount        int `json:"trackerCount"`
	CookieCount         int `json:"cookieCount"`
	ExternalDomainCount int `json:"externalDomainCount"`
	PagesCrawled        int `json:"pagesCrawled"`

	IsHTTPS           bool `json:"isHttps"`
	HasCSP            bool `json:"hasCsp"`
	CanvasFingerprint bool `json:"canvasFingerprint"`
	WebGLFingerprint  bool `json:"webglFingerprint"`
	FontFingerprint   bool `json:"fontFingerprint"`
	Keylogger         bool `json:"keylogger"`

	// RawData holds the full analysis report as opaque JSON.
	RawData   []byte    `json:"rawData,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// QueuePayload is the opaque message enqueued per job. The queue job id
// equals the scan job id for traceability.
type QueuePayload struct {
	JobID string `json:"jobId"`
	URL   string `json:"url"`
}

// DeadLetterRecord is written when a job exhausts its attempts.
type DeadLetterRecord struct {
	OriginalJobID string    `json:"originalJobId"`
	JobID         string    `json:"jobId"`
	URL           string    `json:"url"`
	Error         string    `json:"error"`
	Attempts      int       `json:"attempts"`
	FailedAt      time.Time `json:"failedAt"`
}
