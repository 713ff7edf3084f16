package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/common"
)

// Connect opens a PostgreSQL connection pool and verifies it.
func Connect(cfg common.DatabaseConfig, logger arbor.ILogger) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("Database connected")

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS scan_jobs (
	id            UUID PRIMARY KEY,
	user_id       UUID,
	target_url    TEXT NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('PENDING','RUNNING','SUCCESS','FAILED')),
	error_message TEXT,
	started_at    TIMESTAMPTZ,
	completed_at  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_jobs_target_url ON scan_jobs (target_url);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_status ON scan_jobs (status);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_user_id ON scan_jobs (user_id);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_created_at ON scan_jobs (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_scan_jobs_url_created ON scan_jobs (target_url, created_at DESC);

CREATE TABLE IF NOT EXISTS scan_results (
	id                    UUID PRIMARY KEY,
	scan_job_id           UUID NOT NULL UNIQUE REFERENCES scan_jobs(id) ON DELETE CASCADE,
	score                 INT NOT NULL,
	risk_level            TEXT NOT NULL CHECK (risk_level IN ('LOW','MODERATE','ELEVATED','HIGH')),
	summary               TEXT NOT NULL,
	tracker_count         INT NOT NULL DEFAULT 0,
	cookie_count          INT NOT NULL DEFAULT 0,
	external_domain_count INT NOT NULL DEFAULT 0,
	pages_crawled         INT NOT NULL DEFAULT 0,
	is_https              BOOLEAN NOT NULL DEFAULT false,
	has_csp               BOOLEAN NOT NULL DEFAULT false,
	canvas_fingerprint    BOOLEAN NOT NULL DEFAULT false,
	webgl_fingerprint     BOOLEAN NOT NULL DEFAULT false,
	font_fingerprint      BOOLEAN NOT NULL DEFAULT false,
	keylogger             BOOLEAN NOT NULL DEFAULT false,
	raw_data              JSONB,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_scan_results_score ON scan_results (score);
CREATE INDEX IF NOT EXISTS idx_scan_results_risk_level ON scan_results (risk_level);
CREATE INDEX IF NOT EXISTS idx_scan_results_created_at ON scan_results (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_scan_results_canvas ON scan_results (canvas_fingerprint);
CREATE INDEX IF NOT EXISTS idx_scan_results_keylogger ON scan_results (keylogger);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
