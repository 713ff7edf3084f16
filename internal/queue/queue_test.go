package queue

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
)

func testQueue() *Queue {
	cfg := common.QueueConfig{
		Name:         "privascan_jobs",
		MaxAttempts:  3,
		BackoffBase:  5 * time.Second,
		LockDuration: 120 * time.Second,
	}
	return NewQueue(nil, cfg, arbor.NewLogger())
}

func TestBackoff_Exponential(t *testing.T) {
	q := testQueue()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 20 * time.Second},
		{3, 80 * time.Second},
	}
	for _, tt := range tests {
		if got := q.backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestPendingScore_PriorityBeforeSequence(t *testing.T) {
	// Lower score drains first: priority is the major key, enqueue
	// sequence the minor key.
	urgentLate := pendingScore(0, 1000)
	normalEarly := pendingScore(1, 1)
	if urgentLate >= normalEarly {
		t.Error("priority 0 should drain before priority 1 regardless of sequence")
	}

	first := pendingScore(0, 1)
	second := pendingScore(0, 2)
	if first >= second {
		t.Error("equal priorities should drain FIFO by sequence")
	}
}

func TestQueueKeys_Prefixed(t *testing.T) {
	q := testQueue()

	tests := []struct {
		got  string
		want string
	}{
		{q.pendingKey(), "privascan_jobs:pending"},
		{q.delayedKey(), "privascan_jobs:delayed"},
		{q.activeKey(), "privascan_jobs:active"},
		{q.deadKey(), "privascan_jobs:dead"},
		{q.jobKey("abc"), "privascan_jobs:job:abc"},
		{q.lockKey("abc"), "privascan_jobs:lock:abc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}
