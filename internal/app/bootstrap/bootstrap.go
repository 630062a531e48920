package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	votingservice "voteboard/contexts/elections/voting-service"
	"voteboard/contexts/elections/voting-service/adapters/memory"
	postgresadapter "voteboard/contexts/elections/voting-service/adapters/postgres"
	redisadapter "voteboard/contexts/elections/voting-service/adapters/redis"
	workerapp "voteboard/contexts/elections/voting-service/application/workers"
	"voteboard/contexts/elections/voting-service/ports"
	"voteboard/internal/platform/cache"
	"voteboard/internal/platform/config"
	"voteboard/internal/platform/db"
	"voteboard/internal/platform/httpserver"
	"voteboard/internal/platform/logging"
	"voteboard/internal/platform/messaging"

	"github.com/redis/go-redis/v9"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type eventBus interface {
	ports.EventPublisher
	ports.EventSubscriber
}

type APIApp struct {
	server   *httpserver.Server
	database *db.Database
	redis    *redis.Client
	logger   *slog.Logger
}

type WorkerApp struct {
	database     *db.Database
	redis        *redis.Client
	outboxRelay  workerapp.OutboxRelay
	invalidation workerapp.ResultsInvalidationConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName, "process", "api")
	return NewAPI(context.Background(), cfg, logger)
}

// NewAPI wires the API process from an already loaded config.
func NewAPI(ctx context.Context, cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	database, repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var resultsCache ports.ResultsCache = memory.NewResultsCache()
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		resultsCache = redisadapter.NewResultsCache(redisClient, "", logger)
	}
	if cfg.ResultsCacheTTL <= 0 {
		resultsCache = nil
	}

	module := votingservice.NewModule(votingservice.Dependencies{
		Candidates: repo,
		Ballots:    repo,
		Cache:      resultsCache,
		Clock:      postgresadapter.SystemClock{},
		IDGen:      postgresadapter.UUIDGenerator{},
		CacheTTL:   cfg.ResultsCacheTTL,
		Logger:     logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort), cfg.AdminToken)
	return &APIApp{
		server:   server,
		database: database,
		redis:    redisClient,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName, "process", "worker")
	return NewWorker(context.Background(), cfg, logger)
}

// NewWorker wires the outbox relay and the results invalidation consumer.
// Without Redis both run over the in-process bus and there is no shared
// cache to invalidate.
func NewWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	database, repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	var bus eventBus = messaging.NewBus(logger)
	var resultsCache ports.ResultsCache
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		bus = messaging.NewRedisBus(redisClient, logger)
		resultsCache = redisadapter.NewResultsCache(redisClient, "", logger)
	}

	pollInterval := cfg.OutboxPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &WorkerApp{
		database: database,
		redis:    redisClient,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: 100,
			Logger:    logger,
		},
		invalidation: workerapp.ResultsInvalidationConsumer{
			Subscriber:    bus,
			Cache:         resultsCache,
			ConsumerGroup: "voting-service-results-cg",
			Logger:        logger,
		},
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

func openRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (*db.Database, *postgresadapter.Repository, error) {
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, nil, errors.New("DATABASE_DSN is required")
	}
	database, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	repo := postgresadapter.NewRepository(database.DB, logger)
	if cfg.DatabaseAutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = database.Close()
			return nil, nil, err
		}
	}
	return database, repo, nil
}

// Server returns the wired HTTP server.
func (a *APIApp) Server() *httpserver.Server {
	return a.server
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *APIApp) Close() error {
	return closeAll(a.database, a.redis)
}

// Run polls the outbox until ctx is cancelled. A failed cycle is retried on
// the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.invalidation.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_worker_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return closeAll(w.database, w.redis)
}

func closeAll(database *db.Database, client *redis.Client) error {
	var errs []error
	if client != nil {
		errs = append(errs, client.Close())
	}
	if database != nil {
		errs = append(errs, database.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
