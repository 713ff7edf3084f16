package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
)

// Janitor runs the queue maintenance schedules: stalled-job recovery on the
// stalled interval and retention trimming every few minutes.
type Janitor struct {
	queue  *Queue
	cfg    common.QueueConfig
	logger arbor.ILogger
	cron   *cron.Cron
}

// NewJanitor creates a janitor for the given queue.
func NewJanitor(queue *Queue, cfg common.QueueConfig, logger arbor.ILogger) *Janitor {
	return &Janitor{
		queue:  queue,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start registers the maintenance schedules and begins running them.
func (j *Janitor) Start() error {
	stalledSpec := fmt.Sprintf("@every %s", j.cfg.StalledInterval)
	if _, err := j.cron.AddFunc(stalledSpec, j.sweepStalled); err != nil {
		return fmt.Errorf("schedule stalled sweep: %w", err)
	}

	if _, err := j.cron.AddFunc("@every 5m", j.trimRetention); err != nil {
		return fmt.Errorf("schedule retention trim: %w", err)
	}

	j.cron.Start()
	j.logger.Info().
		Str("stalled_interval", j.cfg.StalledInterval.String()).
		Msg("Queue janitor started")
	return nil
}

// Stop halts the schedules and waits for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info().Msg("Queue janitor stopped")
}

func (j *Janitor) sweepStalled() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recovered, err := j.queue.RecoverStalled(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("Stalled sweep failed")
		return
	}
	if len(recovered) > 0 {
		j.logger.Warn().Int("count", len(recovered)).Msg("Recovered stalled jobs")
	}
}

func (j *Janitor) trimRetention() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.queue.TrimRetention(ctx); err != nil {
		j.logger.Error().Err(err).Msg("Retention trim failed")
	}
}
