package ingress

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/models"
)

// JobStore is the slice of the job store the admission path needs.
type JobStore interface {
	Create(ctx context.Context, job *models.ScanJob) error
	FindRecentSuccess(ctx context.Context, targetURL string, since time.Time) (*models.ScanJob, error)
	FindActive(ctx context.Context, targetURL string) (*models.ScanJob, error)
	MarkFailed(ctx context.Context, id, errorMessage string) error
}

// Enqueuer places an admitted job on the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload models.QueuePayload) error
}

// Admission is the outcome of one submission.
type Admission struct {
	Job    *models.ScanJob
	Cached bool
	// CachedAt is set when the admission was served from a recent success.
	CachedAt *time.Time
}

// Service runs the full admission pipeline: validate, resolve, SSRF-check,
// deduplicate, persist, enqueue.
type Service struct {
	store    JobStore
	queue    Enqueuer
	locker   InflightLocker
	resolver HostResolver
	window   time.Duration
	logger   arbor.ILogger
}

// NewService constructs the admission service.
func NewService(store JobStore, queue Enqueuer, locker InflightLocker, window time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		store:    store,
		queue:    queue,
		locker:   locker,
		resolver: NewResolver(),
		window:   window,
		logger:   logger,
	}
}

// Admit processes one submission. Validation, resolution, and policy errors
// return a *common.ScanError; infrastructure failures return plain errors.
func (s *Service) Admit(ctx context.Context, rawURL string) (*Admission, error) {
	canonical, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	hostname := HostnameOf(canonical)

	// Reserved names and private zones are policy rejections regardless of
	// whether they resolve, so the hostname checks come before DNS.
	if err := CheckSSRFHostname(hostname); err != nil {
		s.logger.Warn().
			Str("hostname", hostname).
			Msg("Submission blocked by SSRF policy")
		return nil, err
	}

	addr, err := s.resolver.Resolve(ctx, hostname)
	if err != nil {
		return nil, err
	}

	if err := CheckSSRF(hostname, addr); err != nil {
		s.logger.Warn().
			Str("hostname", hostname).
			Str("resolved", addr.String()).
			Msg("Submission blocked by SSRF policy")
		return nil, err
	}

	// Level 1: a SUCCESS for the same canonical URL inside the window is
	// served without enqueueing. Deterministic across processes.
	since := time.Now().Add(-s.window)
	if recent, err := s.store.FindRecentSuccess(ctx, canonical, since); err == nil && recent != nil {
		s.logger.Debug().
			Str("job_id", recent.ID).
			Str("url", canonical).
			Msg("Admission served from recent success")
		return &Admission{Job: recent, Cached: true, CachedAt: recent.CompletedAt}, nil
	}

	// Level 2: atomic set-if-absent on the in-flight key. Losing the race
	// means another admission is in progress; coalesce onto its job.
	acquired, err := s.locker.Acquire(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if !acquired {
		if active, err := s.store.FindActive(ctx, canonical); err == nil && active != nil {
			s.logger.Debug().
				Str("job_id", active.ID).
				Str("url", canonical).
				Msg("Admission coalesced onto in-flight job")
			return &Admission{Job: active}, nil
		}
		// Lock held but no job visible yet: the holder may have crashed
		// between acquire and create. Proceed to enqueue rather than
		// orphaning this submission.
	}

	job := models.NewScanJob(canonical)
	if err := s.store.Create(ctx, job); err != nil {
		releaseErr := s.locker.Release(ctx, canonical)
		if releaseErr != nil {
			s.logger.Warn().Err(releaseErr).Str("url", canonical).Msg("Failed to release in-flight key after create failure")
		}
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, models.QueuePayload{JobID: job.ID, URL: canonical}); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to enqueue scan job")
		if markErr := s.store.MarkFailed(ctx, job.ID, "Failed to enqueue scan job"); markErr != nil {
			s.logger.Error().Err(markErr).Str("job_id", job.ID).Msg("Failed to mark job failed after enqueue failure")
		}
		if releaseErr := s.locker.Release(ctx, canonical); releaseErr != nil {
			s.logger.Warn().Err(releaseErr).Str("url", canonical).Msg("Failed to release in-flight key after enqueue failure")
		}
		return nil, common.NewScanError(common.ErrEnqueueFailed, err.Error())
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("url", canonical).
		Msg("Scan job admitted")

	return &Admission{Job: job}, nil
}
