package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/analysis"
	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/ingress"
	"github.com/ternarybob/privascan/internal/metrics"
	"github.com/ternarybob/privascan/internal/models"
	"github.com/ternarybob/privascan/internal/queue"
	"github.com/ternarybob/privascan/internal/storage/postgres"
)

// EventPublisher fans job lifecycle events out to subscribers. Optional.
type EventPublisher interface {
	Publish(event models.JobEvent)
}

// Crawler drives the browser against one target URL.
type Crawler interface {
	Crawl(ctx context.Context, targetURL string) (*models.CrawlRecord, error)
}

// Analyzer turns one aggregate crawl record into a scored report.
type Analyzer interface {
	Run(ctx context.Context, record *models.CrawlRecord) (*models.AnalysisReport, error)
}

// Pool runs N concurrent scan executors over the work queue. Each worker is
// single-threaded across its job; separate jobs run fully in parallel.
type Pool struct {
	queue    *queue.Queue
	store    *postgres.JobStore
	engine   Crawler
	pipeline Analyzer
	locker   ingress.InflightLocker
	metrics  *metrics.Metrics
	events   EventPublisher
	cfg      common.Config
	logger   arbor.ILogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool wires a worker pool. events may be nil.
func NewPool(
	q *queue.Queue,
	store *postgres.JobStore,
	engine Crawler,
	pipeline Analyzer,
	locker ingress.InflightLocker,
	m *metrics.Metrics,
	events EventPublisher,
	cfg common.Config,
	logger arbor.ILogger,
) *Pool {
	return &Pool{
		queue:    q,
		store:    store,
		engine:   engine,
		pipeline: pipeline,
		locker:   locker,
		metrics:  m,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches the workers plus the queue-depth sampler.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.cfg.Worker.Concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}

	p.wg.Add(1)
	go p.sampleQueueDepth(ctx)

	p.logger.Info().Int("concurrency", p.cfg.Worker.Concurrency).Msg("Worker pool started")
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	// Cancellation stops claiming only. A claimed job keeps running on a
	// context that survives shutdown; Stop waits for it to finish rather
	// than aborting the crawl mid-job and burning an attempt.
	jobCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := p.queue.Claim(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			select {
			case <-time.After(p.cfg.Queue.PollInterval):
			case <-ctx.Done():
				return
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).Int("worker", id).Msg("Claim failed")
			select {
			case <-time.After(p.cfg.Queue.PollInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		p.process(jobCtx, id, msg)
	}
}

// process runs one claimed job end to end. The claim lease is renewed on a
// background ticker for the duration.
func (p *Pool) process(ctx context.Context, workerID int, msg *queue.Message) {
	renewCtx, stopRenew := context.WithCancel(ctx)
	defer stopRenew()
	go p.renewLease(renewCtx, msg.ID)

	job, err := p.store.FindByID(ctx, msg.ID)
	if errors.Is(err, postgres.ErrNotFound) {
		// Deleted while queued; the payload is a no-op success.
		p.logger.Info().Str("job_id", msg.ID).Msg("Job row gone, dropping payload")
		if err := p.queue.Complete(ctx, msg.ID); err != nil {
			p.logger.Warn().Err(err).Str("job_id", msg.ID).Msg("Failed to retire dropped job")
		}
		return
	}
	if err != nil {
		p.fail(ctx, msg, fmt.Errorf("load job: %w", err))
		return
	}
	if job.Status.IsTerminal() {
		p.logger.Info().Str("job_id", msg.ID).Str("status", string(job.Status)).Msg("Job already terminal, dropping payload")
		if err := p.queue.Complete(ctx, msg.ID); err != nil {
			p.logger.Warn().Err(err).Str("job_id", msg.ID).Msg("Failed to retire terminal job")
		}
		return
	}

	startedAt := time.Now().UTC()
	if err := p.store.MarkRunning(ctx, msg.ID, startedAt); err != nil {
		p.fail(ctx, msg, fmt.Errorf("mark running: %w", err))
		return
	}

	p.metrics.ScanStarted()
	p.metrics.WorkerStarted()
	defer p.metrics.WorkerFinished()
	p.publish("started", msg, models.JobStatusRunning)

	p.logger.Info().
		Str("job_id", msg.ID).
		Str("url", msg.Payload.URL).
		Int("worker", workerID).
		Int("attempt", msg.Attempts+1).
		Msg("Scan started")

	result, err := p.execute(ctx, msg)
	duration := time.Since(startedAt)
	if err != nil {
		p.metrics.ScanFailed(duration)
		p.fail(ctx, msg, err)
		return
	}

	if err := p.store.CompleteWithResult(ctx, msg.ID, result); err != nil {
		p.metrics.ScanFailed(duration)
		p.fail(ctx, msg, fmt.Errorf("persist result: %w", err))
		return
	}
	p.releaseInflight(ctx, msg.Payload.URL)
	if err := p.queue.Complete(ctx, msg.ID); err != nil {
		p.logger.Warn().Err(err).Str("job_id", msg.ID).Msg("Failed to retire completed job")
	}

	p.metrics.ScanSucceeded(duration)
	p.publish("completed", msg, models.JobStatusSuccess)
	p.logger.Info().
		Str("job_id", msg.ID).
		Str("url", msg.Payload.URL).
		Int("score", result.Score).
		Str("duration", duration.String()).
		Msg("Scan succeeded")
}

// execute runs crawl then analysis and flattens the report.
func (p *Pool) execute(ctx context.Context, msg *queue.Message) (*models.ScanResult, error) {
	record, err := p.engine.Crawl(ctx, msg.Payload.URL)
	if err != nil {
		return nil, err
	}

	report, err := p.pipeline.Run(ctx, record)
	if err != nil {
		return nil, err
	}
	return analysis.ToResult(report)
}

// fail routes a processing error through the queue's retry policy. Only the
// final failure is persisted on the job.
func (p *Pool) fail(ctx context.Context, msg *queue.Message, jobErr error) {
	willRetry, err := p.queue.Fail(ctx, msg, jobErr)
	if err != nil {
		p.logger.Error().Err(err).Str("job_id", msg.ID).Msg("Failed to record job failure")
		return
	}
	if willRetry {
		p.publish("retrying", msg, models.JobStatusPending)
		return
	}

	if err := p.store.MarkFailed(ctx, msg.ID, common.TruncateError(jobErr.Error())); err != nil &&
		!errors.Is(err, postgres.ErrInvalidTransition) && !errors.Is(err, postgres.ErrNotFound) {
		p.logger.Error().Err(err).Str("job_id", msg.ID).Msg("Failed to mark job failed")
	}
	p.releaseInflight(ctx, msg.Payload.URL)
	p.publish("failed", msg, models.JobStatusFailed)
}

func (p *Pool) releaseInflight(ctx context.Context, url string) {
	if err := p.locker.Release(ctx, url); err != nil {
		p.logger.Warn().Err(err).Str("url", url).Msg("Failed to release in-flight key")
	}
}

func (p *Pool) renewLease(ctx context.Context, id string) {
	ticker := time.NewTicker(p.cfg.Queue.RenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := p.queue.Renew(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Warn().Err(err).Str("job_id", id).Msg("Lease renewal failed")
				}
				continue
			}
			if !held {
				p.logger.Warn().Str("job_id", id).Msg("Lease lost, job may be requeued")
				return
			}
		}
	}
}

func (p *Pool) sampleQueueDepth(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := p.queue.GetStats(ctx)
			if err != nil {
				continue
			}
			p.metrics.SetQueueDepth(stats.Pending + stats.Delayed)
		}
	}
}

func (p *Pool) publish(eventType string, msg *queue.Message, status models.JobStatus) {
	if p.events == nil {
		return
	}
	p.events.Publish(models.JobEvent{
		Type:      eventType,
		JobID:     msg.ID,
		URL:       msg.Payload.URL,
		Status:    status,
		Timestamp: time.Now().UTC(),
	})
}
