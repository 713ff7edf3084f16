package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/models"
)

// ErrEmpty is returned by Claim when no job is ready.
var ErrEmpty = errors.New("queue is empty")

// Message is the queue-side record of one job. Attempts counts claims that
// ended in failure; stalled requeues do not touch it.
type Message struct {
	ID         string              `json:"id"`
	Payload    models.QueuePayload `json:"payload"`
	Priority   int                 `json:"priority"`
	Attempts   int                 `json:"attempts"`
	EnqueuedAt time.Time           `json:"enqueuedAt"`
}

// Queue is a Redis-backed work queue with priority ordering, visibility
// leases, delayed retries, and a dead-letter list. All keys live under one
// prefix so multiple queues can share a Redis instance.
type Queue struct {
	client redis.UniversalClient
	cfg    common.QueueConfig
	logger arbor.ILogger

	claimScript   *redis.Script
	requeueScript *redis.Script
}

// NewQueue creates a queue over an existing Redis client.
func NewQueue(client redis.UniversalClient, cfg common.QueueConfig, logger arbor.ILogger) *Queue {
	return &Queue{
		client:        client,
		cfg:           cfg,
		logger:        logger,
		claimScript:   redis.NewScript(claimLua),
		requeueScript: redis.NewScript(requeueLua),
	}
}

func (q *Queue) key(parts ...string) string {
	k := q.cfg.Name
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (q *Queue) pendingKey() string       { return q.key("pending") }
func (q *Queue) delayedKey() string       { return q.key("delayed") }
func (q *Queue) activeKey() string        { return q.key("active") }
func (q *Queue) completedKey() string     { return q.key("completed") }
func (q *Queue) failedKey() string        { return q.key("failed") }
func (q *Queue) deadKey() string          { return q.key("dead") }
func (q *Queue) seqKey() string           { return q.key("seq") }
func (q *Queue) jobKey(id string) string  { return q.key("job", id) }
func (q *Queue) lockKey(id string) string { return q.key("lock", id) }

// Pending entries are scored priority-major, sequence-minor so that equal
// priorities drain FIFO. Priority 0 is the default and the most urgent.
func pendingScore(priority int, seq int64) float64 {
	return float64(priority)*float64(1<<40) + float64(seq)
}

// Enqueue adds a job at default priority. The queue message id equals the
// scan job id.
func (q *Queue) Enqueue(ctx context.Context, payload models.QueuePayload) error {
	return q.EnqueueWithPriority(ctx, payload, 0)
}

// EnqueueWithPriority adds a job at an explicit priority. Lower is sooner.
func (q *Queue) EnqueueWithPriority(ctx context.Context, payload models.QueuePayload, priority int) error {
	msg := Message{
		ID:         payload.JobID,
		Payload:    payload,
		Priority:   priority,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}

	seq, err := q.client.Incr(ctx, q.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate sequence: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.jobKey(msg.ID), data, 0)
	pipe.ZAdd(ctx, q.pendingKey(), redis.Z{Score: pendingScore(priority, seq), Member: msg.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue job %s: %w", msg.ID, err)
	}

	q.logger.Debug().Str("job_id", msg.ID).Int("priority", priority).Msg("Job enqueued")
	return nil
}

// claimLua promotes due delayed jobs, pops the lowest-scored pending job, and
// takes its lock, all atomically.
//
// KEYS: 1 pending, 2 delayed, 3 active, 4 lock-prefix
// ARGV: 1 now-ms, 2 lock-ttl-ms, 3 seq-key
const claimLua = `
local due = redis.call('ZRANGEBYSCORE', KEYS[2], '-inf', ARGV[1])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[2], id)
  local seq = redis.call('INCR', ARGV[3])
  redis.call('ZADD', KEYS[1], seq, id)
end

local ids = redis.call('ZRANGE', KEYS[1], 0, 0)
if #ids == 0 then
  return false
end
local id = ids[1]

local lockKey = KEYS[4] .. id
if redis.call('SET', lockKey, '1', 'NX', 'PX', ARGV[2]) == false then
  return false
end

redis.call('ZREM', KEYS[1], id)
redis.call('SADD', KEYS[3], id)
return id
`

// Claim takes the next ready job and holds its lease for the lock duration.
// Returns ErrEmpty when nothing is ready.
func (q *Queue) Claim(ctx context.Context) (*Message, error) {
	nowMs := time.Now().UnixMilli()
	res, err := q.claimScript.Run(ctx, q.client,
		[]string{q.pendingKey(), q.delayedKey(), q.activeKey(), q.key("lock") + ":"},
		nowMs, q.cfg.LockDuration.Milliseconds(), q.seqKey(),
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	id, ok := res.(string)
	if !ok || id == "" {
		return nil, ErrEmpty
	}

	data, err := q.client.Get(ctx, q.jobKey(id)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load claimed job %s: %w", id, err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode claimed job %s: %w", id, err)
	}
	return &msg, nil
}

// Renew extends the lease on a claimed job. A false return means the lease
// was already lost and the job may have been requeued.
func (q *Queue) Renew(ctx context.Context, id string) (bool, error) {
	ok, err := q.client.PExpire(ctx, q.lockKey(id), q.cfg.LockDuration).Result()
	if err != nil {
		return false, fmt.Errorf("renew lease for %s: %w", id, err)
	}
	return ok, nil
}

// Complete retires a successfully processed job. The completed set is kept
// for observability and trimmed by the janitor.
func (q *Queue) Complete(ctx context.Context, id string) error {
	now := float64(time.Now().UnixMilli())
	pipe := q.client.TxPipeline()
	pipe.Del(ctx, q.lockKey(id))
	pipe.SRem(ctx, q.activeKey(), id)
	pipe.Del(ctx, q.jobKey(id))
	pipe.ZAdd(ctx, q.completedKey(), redis.Z{Score: now, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// Fail records a processing failure. Attempts below the maximum go back on
// the delayed set with exponential backoff; the rest are dead-lettered. The
// boolean reports whether the job will be retried.
func (q *Queue) Fail(ctx context.Context, msg *Message, jobErr error) (bool, error) {
	msg.Attempts++

	if msg.Attempts < q.cfg.MaxAttempts {
		delay := q.backoff(msg.Attempts)
		data, err := json.Marshal(msg)
		if err != nil {
			return false, fmt.Errorf("marshal retry message: %w", err)
		}
		readyAt := float64(time.Now().Add(delay).UnixMilli())

		pipe := q.client.TxPipeline()
		pipe.Del(ctx, q.lockKey(msg.ID))
		pipe.SRem(ctx, q.activeKey(), msg.ID)
		pipe.Set(ctx, q.jobKey(msg.ID), data, 0)
		pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: readyAt, Member: msg.ID})
		if _, err := pipe.Exec(ctx); err != nil {
			return false, fmt.Errorf("schedule retry for %s: %w", msg.ID, err)
		}

		q.logger.Warn().
			Str("job_id", msg.ID).
			Int("attempt", msg.Attempts).
			Str("delay", delay.String()).
			Err(jobErr).
			Msg("Job scheduled for retry")
		return true, nil
	}

	record := models.DeadLetterRecord{
		OriginalJobID: msg.Payload.JobID,
		JobID:         msg.ID,
		URL:           msg.Payload.URL,
		Error:         common.TruncateError(jobErr.Error()),
		Attempts:      msg.Attempts,
		FailedAt:      time.Now().UTC(),
	}
	recData, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal dead letter: %w", err)
	}

	now := float64(time.Now().UnixMilli())
	pipe := q.client.TxPipeline()
	pipe.Del(ctx, q.lockKey(msg.ID))
	pipe.SRem(ctx, q.activeKey(), msg.ID)
	pipe.Del(ctx, q.jobKey(msg.ID))
	pipe.LPush(ctx, q.deadKey(), recData)
	pipe.ZAdd(ctx, q.failedKey(), redis.Z{Score: now, Member: msg.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("dead-letter job %s: %w", msg.ID, err)
	}

	q.logger.Error().
		Str("job_id", msg.ID).
		Int("attempts", msg.Attempts).
		Err(jobErr).
		Msg("Job dead-lettered after exhausting attempts")
	return false, nil
}

// backoff returns the delay before retry n (1-based): base, base*4, base*16.
func (q *Queue) backoff(attempt int) time.Duration {
	mult := math.Pow(4, float64(attempt-1))
	return time.Duration(float64(q.cfg.BackoffBase) * mult)
}

// requeueLua returns a stalled job (active member whose lock key is gone) to
// the head of the pending set without touching its attempt counter.
//
// KEYS: 1 active, 2 pending, 3 lock-key
// ARGV: 1 job-id, 2 seq-key
const requeueLua = `
if redis.call('EXISTS', KEYS[3]) == 1 then
  return 0
end
if redis.call('SREM', KEYS[1], ARGV[1]) == 0 then
  return 0
end
local seq = redis.call('INCR', ARGV[2])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`

// RecoverStalled requeues active jobs whose lease expired. Returns the ids
// that were recovered.
func (q *Queue) RecoverStalled(ctx context.Context) ([]string, error) {
	ids, err := q.client.SMembers(ctx, q.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}

	recovered := []string{}
	for _, id := range ids {
		res, err := q.requeueScript.Run(ctx, q.client,
			[]string{q.activeKey(), q.pendingKey(), q.lockKey(id)},
			id, q.seqKey(),
		).Int()
		if err != nil {
			return recovered, fmt.Errorf("requeue stalled job %s: %w", id, err)
		}
		if res == 1 {
			recovered = append(recovered, id)
			q.logger.Warn().Str("job_id", id).Msg("Stalled job requeued")
		}
	}
	return recovered, nil
}

// TrimRetention drops completed records past age or count limits and failed
// records past their age limit.
func (q *Queue) TrimRetention(ctx context.Context) error {
	now := time.Now()
	completedCutoff := float64(now.Add(-q.cfg.CompletedMaxAge).UnixMilli())
	failedCutoff := float64(now.Add(-q.cfg.FailedMaxAge).UnixMilli())

	pipe := q.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, q.completedKey(), "-inf", fmt.Sprintf("%f", completedCutoff))
	// Keep only the newest CompletedMax entries.
	pipe.ZRemRangeByRank(ctx, q.completedKey(), 0, int64(-q.cfg.CompletedMax-1))
	pipe.ZRemRangeByScore(ctx, q.failedKey(), "-inf", fmt.Sprintf("%f", failedCutoff))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("trim retention: %w", err)
	}
	return nil
}

// Stats is a point-in-time census of the queue.
type Stats struct {
	Pending   int64 `json:"pending"`
	Delayed   int64 `json:"delayed"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dead      int64 `json:"dead"`
}

// GetStats reads all queue gauges in one round trip.
func (q *Queue) GetStats(ctx context.Context) (*Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.ZCard(ctx, q.pendingKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	active := pipe.SCard(ctx, q.activeKey())
	completed := pipe.ZCard(ctx, q.completedKey())
	failed := pipe.ZCard(ctx, q.failedKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &Stats{
		Pending:   pending.Val(),
		Delayed:   delayed.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Dead:      dead.Val(),
	}, nil
}

// Ping verifies Redis liveness.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
