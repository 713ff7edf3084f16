package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/models"
)

var (
	// ErrNotFound is returned when a job does not exist.
	ErrNotFound = errors.New("scan job not found")
	// ErrConflict is returned when an operation is refused by job state,
	// e.g. deleting a RUNNING job.
	ErrConflict = errors.New("operation conflicts with job state")
	// ErrInvalidTransition is returned when a status update does not match
	// the expected from-state. This is what makes completion idempotent.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// JobStore owns the scan_jobs and scan_results tables.
type JobStore struct {
	db     *sql.DB
	logger arbor.ILogger
}

// NewJobStore creates a job store over an open connection pool.
func NewJobStore(db *sql.DB, logger arbor.ILogger) *JobStore {
	return &JobStore{db: db, logger: logger}
}

const jobColumns = `id, user_id, target_url, status, COALESCE(error_message, ''), started_at, completed_at, created_at, updated_at`

func scanJob(row interface{ Scan(...interface{}) error }) (*models.ScanJob, error) {
	var job models.ScanJob
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.TargetURL,
		&job.Status,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Create inserts a new PENDING job.
func (s *JobStore) Create(ctx context.Context, job *models.ScanJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_jobs (id, user_id, target_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.UserID, job.TargetURL, job.Status, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create scan job: %w", err)
	}
	return nil
}

// FindByID returns a job by its identifier.
func (s *JobStore) FindByID(ctx context.Context, id string) (*models.ScanJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find scan job: %w", err)
	}
	return job, nil
}

// FindRecentSuccess returns the newest SUCCESS job for a canonical URL
// completed at or after the given instant, or nil when there is none.
func (s *JobStore) FindRecentSuccess(ctx context.Context, targetURL string, since time.Time) (*models.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE target_url = $1 AND status = 'SUCCESS' AND completed_at >= $2
		ORDER BY completed_at DESC
		LIMIT 1`, targetURL, since)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find recent success: %w", err)
	}
	return job, nil
}

// FindActive returns a PENDING or RUNNING job for the URL, or nil.
func (s *JobStore) FindActive(ctx context.Context, targetURL string) (*models.ScanJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE target_url = $1 AND status IN ('PENDING', 'RUNNING')
		ORDER BY created_at DESC
		LIMIT 1`, targetURL)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active job: %w", err)
	}
	return job, nil
}

// MarkRunning transitions a job to RUNNING and stamps startedAt. RUNNING is
// itself an allowed from-state: delivery is at-least-once, so a retried or
// stalled job re-arrives with its row still RUNNING from the attempt that
// failed. Only terminal states refuse with ErrInvalidTransition.
func (s *JobStore) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs
		SET status = 'RUNNING', started_at = $2, completed_at = NULL, error_message = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING', 'FAILED')`, id, startedAt)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return requireAffected(res)
}

// MarkFailed transitions a non-terminal job to FAILED with a bounded error
// message and a completion timestamp.
func (s *JobStore) MarkFailed(ctx context.Context, id, errorMessage string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scan_jobs
		SET status = 'FAILED', error_message = $2, completed_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'RUNNING')`,
		id, truncate(errorMessage, 1000))
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireAffected(res)
}

// CompleteWithResult creates the result row and moves the job to SUCCESS in
// one transaction. Partial writes are impossible; a job already out of
// RUNNING state rolls the whole write back.
func (s *JobStore) CompleteWithResult(ctx context.Context, jobID string, result *models.ScanResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE scan_jobs
		SET status = 'SUCCESS', completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'RUNNING'`, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	result.ScanJobID = jobID

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_results (
			id, scan_job_id, score, risk_level, summary,
			tracker_count, cookie_count, external_domain_count, pages_crawled,
			is_https, has_csp, canvas_fingerprint, webgl_fingerprint, font_fingerprint, keylogger,
			raw_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())`,
		result.ID, result.ScanJobID, result.Score, result.RiskLevel, result.Summary,
		result.TrackerCount, result.CookieCount, result.ExternalDomainCount, result.PagesCrawled,
		result.IsHTTPS, result.HasCSP, result.CanvasFingerprint, result.WebGLFingerprint,
		result.FontFingerprint, result.Keylogger,
		result.RawData,
	)
	if err != nil {
		return fmt.Errorf("insert scan result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion tx: %w", err)
	}
	return nil
}

// FindResult returns the result for a job, or nil when none exists.
func (s *JobStore) FindResult(ctx context.Context, jobID string) (*models.ScanResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scan_job_id, score, risk_level, summary,
		       tracker_count, cookie_count, external_domain_count, pages_crawled,
		       is_https, has_csp, canvas_fingerprint, webgl_fingerprint, font_fingerprint, keylogger,
		       raw_data, created_at
		FROM scan_results WHERE scan_job_id = $1`, jobID)

	var r models.ScanResult
	err := row.Scan(
		&r.ID, &r.ScanJobID, &r.Score, &r.RiskLevel, &r.Summary,
		&r.TrackerCount, &r.CookieCount, &r.ExternalDomainCount, &r.PagesCrawled,
		&r.IsHTTPS, &r.HasCSP, &r.CanvasFingerprint, &r.WebGLFingerprint, &r.FontFingerprint, &r.Keylogger,
		&r.RawData, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find scan result: %w", err)
	}
	return &r, nil
}

// List returns a page of jobs matching the filter, newest first.
func (s *JobStore) List(ctx context.Context, filter models.ListFilter) ([]models.ScanJob, int, error) {
	filter.Normalize()

	where := []string{}
	args := []interface{}{}
	if filter.URL != "" {
		args = append(args, filter.URL)
		where = append(where, "target_url = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_jobs"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan jobs: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := "SELECT " + jobColumns + " FROM scan_jobs" + whereClause +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scan jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.ScanJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate scan jobs: %w", err)
	}

	return jobs, total, nil
}

// Delete removes a job unless it is RUNNING. Results cascade.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	job, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusRunning {
		return ErrConflict
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_jobs WHERE id = $1 AND status <> 'RUNNING'`, id)
	if err != nil {
		return fmt.Errorf("delete scan job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete scan job: %w", err)
	}
	if affected == 0 {
		// Raced into RUNNING between the read and the delete.
		return ErrConflict
	}
	return nil
}

// Ping verifies database liveness with a lightweight query.
func (s *JobStore) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
