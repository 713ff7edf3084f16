package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/privascan/internal/analysis"
	"github.com/ternarybob/privascan/internal/common"
	"github.com/ternarybob/privascan/internal/crawler"
	"github.com/ternarybob/privascan/internal/handlers"
	"github.com/ternarybob/privascan/internal/ingress"
	"github.com/ternarybob/privascan/internal/metrics"
	"github.com/ternarybob/privascan/internal/queue"
	"github.com/ternarybob/privascan/internal/storage/postgres"
	"github.com/ternarybob/privascan/internal/worker"
)

// App is the dependency container. Everything is constructed once at process
// start and passed by reference through handler and worker constructors.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB          *sql.DB
	RedisClient *redis.Client

	JobStore *postgres.JobStore
	Queue    *queue.Queue
	Janitor  *queue.Janitor
	Metrics  *metrics.Metrics

	Admission *ingress.Service
	Pool      *worker.Pool

	AnalyzeHandler *handlers.AnalyzeHandler
	ScanHandler    *handlers.ScanHandler
	StatusHandler  *handlers.StatusHandler
	WSHandler      *handlers.WebSocketHandler
}

// New wires the full application from configuration.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	db, err := postgres.Connect(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}

	redisClient, err := queue.ConnectRedis(cfg.Redis, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	jobStore := postgres.NewJobStore(db, logger)
	workQueue := queue.NewQueue(redisClient, cfg.Queue, logger)
	janitor := queue.NewJanitor(workQueue, cfg.Queue, logger)
	metricsSet := metrics.New(cfg.ServiceName)

	locker := ingress.NewRedisInflightLocker(redisClient, cfg.Dedup.Window)
	admission := ingress.NewService(jobStore, workQueue, locker, cfg.Dedup.Window, logger)

	engine := crawler.NewEngine(cfg.Crawler, logger)
	pipeline := analysis.NewPipeline(cfg.Crawler, nil, logger)

	wsHandler := handlers.NewWebSocketHandler(logger)
	pool := worker.NewPool(workQueue, jobStore, engine, pipeline, locker, metricsSet, wsHandler, *cfg, logger)

	app := &App{
		Config:         cfg,
		Logger:         logger,
		DB:             db,
		RedisClient:    redisClient,
		JobStore:       jobStore,
		Queue:          workQueue,
		Janitor:        janitor,
		Metrics:        metricsSet,
		Admission:      admission,
		Pool:           pool,
		AnalyzeHandler: handlers.NewAnalyzeHandler(admission, metricsSet, logger),
		ScanHandler:    handlers.NewScanHandler(jobStore, logger),
		StatusHandler:  handlers.NewStatusHandler(jobStore, workQueue, metricsSet, cfg.ServiceName, logger),
		WSHandler:      wsHandler,
	}

	logger.Info().Str("service", cfg.ServiceName).Msg("Application wired")
	return app, nil
}

// Start launches the background components: worker pool and queue janitor.
func (a *App) Start(ctx context.Context) error {
	if err := a.Janitor.Start(); err != nil {
		return fmt.Errorf("janitor: %w", err)
	}
	a.Pool.Start(ctx)
	return nil
}

// Close shuts down background work and releases connections. Workers finish
// their in-flight jobs before the stores close.
func (a *App) Close() {
	a.Pool.Stop()
	a.Janitor.Stop()

	if err := a.RedisClient.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Redis close failed")
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Database close failed")
	}
	a.Logger.Info().Msg("Application closed")
}
