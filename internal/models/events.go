package models

import "time"

// JobEvent is a lifecycle notification streamed to WebSocket subscribers.
type JobEvent struct {
	Type      string    `json:"type"` // started, completed, failed, retrying
	JobID     string    `json:"jobId"`
	URL       string    `json:"url"`
	Status    JobStatus `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
