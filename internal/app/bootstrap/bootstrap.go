package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	authorityservice "mandata/contexts/property-authority/authority-service"
	eventsadapter "mandata/contexts/property-authority/authority-service/adapters/events"
	postgresadapter "mandata/contexts/property-authority/authority-service/adapters/postgres"
	"mandata/contexts/property-authority/authority-service/application/workers"
	"mandata/internal/platform/config"
	"mandata/internal/platform/db"
	"mandata/internal/platform/httpserver"
	"mandata/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workers.OutboxRelay
	claimReaper  workers.ClaimReaper
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := authorityservice.NewModule(authorityservice.Dependencies{
		Repository:      repo,
		Idempotency:     repo,
		Outbox:          repo,
		Publisher:       eventsadapter.NewPublisher(nil, cfg.AuthorityEventsTopic, logger),
		Clock:           postgresadapter.SystemClock{},
		IDGenerator:     postgresadapter.UUIDGenerator{},
		ClaimTTL:        cfg.IdempotencyClaimTTL,
		IdempotencyTTL:  cfg.IdempotencyRecordTTL,
		WaitBudget:      cfg.IdempotencyWait,
		PollInterval:    25 * time.Millisecond,
		OutboxBatchSize: cfg.OutboxBatchSize,
		Logger:          logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	publisher := eventsadapter.NewPublisher(kafka, cfg.AuthorityEventsTopic, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workers.OutboxRelay{
			Outbox:    repo,
			Publisher: publisher,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		claimReaper: workers.ClaimReaper{
			Idempotency: repo,
			Clock:       postgresadapter.SystemClock{},
			Logger:      logger,
		},
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.claimReaper.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
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
