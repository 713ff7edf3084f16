package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Queue.MaxAttempts != 3 {
		t.Errorf("default max attempts = %d, want 3", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.BackoffBase != 5*time.Second {
		t.Errorf("default backoff base = %s, want 5s", cfg.Queue.BackoffBase)
	}
	if cfg.Crawler.NavTimeout != 25*time.Second {
		t.Errorf("default nav timeout = %s, want 25s", cfg.Crawler.NavTimeout)
	}
	if cfg.Crawler.MaxSubPages != 3 {
		t.Errorf("default max sub pages = %d, want 3", cfg.Crawler.MaxSubPages)
	}
	if cfg.Dedup.Window != 10*time.Minute {
		t.Errorf("default dedup window = %s, want 10m", cfg.Dedup.Window)
	}
	if !cfg.Crawler.Headless {
		t.Error("crawler should default to headless")
	}
}

func TestLoadFromFile_FileAndEnvPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "privascan.toml")
	content := `
environment = "production"

[server]
port = 9100

[database]
url = "postgres://file-user@localhost/privascan"

[redis]
url = "redis://localhost:6379/0"

[worker]
concurrency = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// Env beats file.
	t.Setenv("DATABASE_URL", "postgres://env-user@localhost/privascan")
	for _, name := range []string{"PORT", "REDIS_URL", "WORKER_CONCURRENCY", "PRIVASCAN_ENV", "GO_ENV"} {
		t.Setenv(name, "")
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Database.URL != "postgres://env-user@localhost/privascan" {
		t.Errorf("database url = %q, want the env override", cfg.Database.URL)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want file value 9100", cfg.Server.Port)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Errorf("concurrency = %d, want file value 4", cfg.Worker.Concurrency)
	}
	if !cfg.IsProduction() {
		t.Error("environment from file not applied")
	}
	// Untouched settings keep their defaults.
	if cfg.Queue.Name != "privascan_jobs" {
		t.Errorf("queue name = %q, want default", cfg.Queue.Name)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/privascan.toml"); err == nil {
		t.Error("missing config file should error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := NewDefaultConfig()
		cfg.Database.URL = "postgres://localhost/privascan"
		cfg.Redis.URL = "redis://localhost:6379"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Errorf("complete config rejected: %v", err)
	}

	cfg := base()
	cfg.Database.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing database url accepted")
	}

	cfg = base()
	cfg.Redis.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing redis url accepted")
	}

	cfg = base()
	cfg.Worker.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero concurrency accepted")
	}

	// The lease must outlive two renewal periods or a slow renewal loses
	// the lock mid-job.
	cfg = base()
	cfg.Queue.RenewInterval = 70 * time.Second
	cfg.Queue.LockDuration = 120 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("renew interval >= half the lock duration accepted")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 9999, "127.0.0.1")
	if cfg.Server.Port != 9999 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("flag overrides not applied: %+v", cfg.Server)
	}

	ApplyFlagOverrides(cfg, 0, "")
	if cfg.Server.Port != 9999 || cfg.Server.Host != "127.0.0.1" {
		t.Error("zero-value flags should not override")
	}
}

func TestIsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	for env, want := range map[string]bool{
		"production":  true,
		"PROD":        true,
		" prod ":      true,
		"development": false,
		"":            false,
	} {
		cfg.Environment = env
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}
