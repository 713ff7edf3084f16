package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production" - shapes log formatting
	ServiceName string         `toml:"service_name"`
	Server      ServerConfig   `toml:"server"`
	Database    DatabaseConfig `toml:"database"`
	Redis       RedisConfig    `toml:"redis"`
	Queue       QueueConfig    `toml:"queue"`
	Worker      WorkerConfig   `toml:"worker"`
	Crawler     CrawlerConfig  `toml:"crawler"`
	Dedup       DedupConfig    `toml:"dedup"`
	Logging     LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port       int    `toml:"port"`
	Host       string `toml:"host"`
	CORSOrigin string `toml:"cors_origin"`
	// Requests per minute allowed per client identity on API routes
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	URL             string        `toml:"url"` // PostgreSQL connection string (required)
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL string `toml:"url"` // Redis connection string (required)
}

type QueueConfig struct {
	Name            string        `toml:"name"`              // Key prefix in Redis
	MaxAttempts     int           `toml:"max_attempts"`      // Attempts before dead-lettering
	BackoffBase     time.Duration `toml:"backoff_base"`      // First retry delay (5s -> 20s -> ...)
	LockDuration    time.Duration `toml:"lock_duration"`     // Worker lease on a claimed job
	RenewInterval   time.Duration `toml:"renew_interval"`    // Lease renewal cadence (must be < lock/2)
	StalledInterval time.Duration `toml:"stalled_interval"`  // Stalled-check sweep cadence
	CompletedMaxAge time.Duration `toml:"completed_max_age"` // Retention for completed records
	CompletedMax    int           `toml:"completed_max"`     // Keep at most this many completed records
	FailedMaxAge    time.Duration `toml:"failed_max_age"`    // Retention for failed records
	PollInterval    time.Duration `toml:"poll_interval"`     // Worker poll cadence when queue is empty
}

type WorkerConfig struct {
	Concurrency int `toml:"concurrency"` // Number of concurrent crawl workers
}

type CrawlerConfig struct {
	UserAgent       string        `toml:"user_agent"`        // Fixed desktop user agent
	NavTimeout      time.Duration `toml:"nav_timeout"`       // domcontentloaded bound
	SettleTimeout   time.Duration `toml:"settle_timeout"`    // load-event wait after DOMContentLoaded
	JSSettleTime    time.Duration `toml:"js_settle_time"`    // additional JS settle window
	SitemapTimeout  time.Duration `toml:"sitemap_timeout"`   // /sitemap.xml fetch budget
	MaxSubPages     int           `toml:"max_sub_pages"`     // Additional same-host pages per crawl
	ScriptFetchMax  int           `toml:"script_fetch_max"`  // External scripts fetched for analysis
	ScriptTimeout   time.Duration `toml:"script_timeout"`    // Per-script fetch timeout
	ScriptBodyCap   int           `toml:"script_body_cap"`   // Bytes of script body analyzed
	BodyTextLimit   int           `toml:"body_text_limit"`   // Chars of body text captured per page
	StorageValueCap int           `toml:"storage_value_cap"` // Chars of each storage value captured
	Headless        bool          `toml:"headless"`
	NoSandbox       bool          `toml:"no_sandbox"`
}

type DedupConfig struct {
	Window time.Duration `toml:"window"` // Recent-success + in-flight window
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		ServiceName: "privacy-analyzer",
		Server: ServerConfig{
			Port:               8000,
			Host:               "0.0.0.0",
			CORSOrigin:         "http://localhost:5173",
			RateLimitPerMinute: 10,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Queue: QueueConfig{
			Name:            "privascan_jobs",
			MaxAttempts:     3,
			BackoffBase:     5 * time.Second,
			LockDuration:    120 * time.Second,
			RenewInterval:   30 * time.Second,
			StalledInterval: 30 * time.Second,
			CompletedMaxAge: 2 * time.Hour,
			CompletedMax:    500,
			FailedMaxAge:    24 * time.Hour,
			PollInterval:    1 * time.Second,
		},
		Worker: WorkerConfig{
			Concurrency: 2,
		},
		Crawler: CrawlerConfig{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavTimeout:      25 * time.Second,
			SettleTimeout:   6 * time.Second,
			JSSettleTime:    2 * time.Second,
			SitemapTimeout:  5 * time.Second,
			MaxSubPages:     3,
			ScriptFetchMax:  8,
			ScriptTimeout:   8 * time.Second,
			ScriptBodyCap:   100 * 1024,
			BodyTextLimit:   5000,
			StorageValueCap: 200,
			Headless:        true,
			NoSandbox:       true,
		},
		Dedup: DedupConfig{
			Window: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path skips file loading.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// The unprefixed names follow the deployment contract; PRIVASCAN_* variants
// exist for environments that namespace everything.
func applyEnvOverrides(config *Config) {
	if env := firstEnv("PRIVASCAN_ENV", "GO_ENV"); env != "" {
		config.Environment = env
	}
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		config.ServiceName = name
	}

	if dbURL := firstEnv("DATABASE_URL", "PRIVASCAN_DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if redisURL := firstEnv("REDIS_URL", "PRIVASCAN_REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}

	if port := firstEnv("PORT", "PRIVASCAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PRIVASCAN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origin := firstEnv("CORS_ORIGIN", "PRIVASCAN_CORS_ORIGIN"); origin != "" {
		config.Server.CORSOrigin = origin
	}

	if concurrency := firstEnv("WORKER_CONCURRENCY", "PRIVASCAN_WORKER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Worker.Concurrency = c
		}
	}

	if queueName := os.Getenv("PRIVASCAN_QUEUE_NAME"); queueName != "" {
		config.Queue.Name = queueName
	}
	if maxAttempts := os.Getenv("PRIVASCAN_QUEUE_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil && ma > 0 {
			config.Queue.MaxAttempts = ma
		}
	}

	if level := os.Getenv("PRIVASCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PRIVASCAN_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if userAgent := os.Getenv("PRIVASCAN_CRAWLER_USER_AGENT"); userAgent != "" {
		config.Crawler.UserAgent = userAgent
	}
	if headless := os.Getenv("PRIVASCAN_CRAWLER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Crawler.Headless = h
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required (set REDIS_URL)")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Queue.RenewInterval*2 >= c.Queue.LockDuration {
		return fmt.Errorf("queue renew interval (%s) must be less than half the lock duration (%s)",
			c.Queue.RenewInterval, c.Queue.LockDuration)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
