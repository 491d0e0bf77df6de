package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	"github.com/clinicamia/contable/internal/accounting/bridge"
	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/app"
	jobmetrics "github.com/clinicamia/contable/internal/jobs"
	"github.com/clinicamia/contable/internal/platform/db"
	"github.com/clinicamia/contable/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	cuentasService := accounts.NewService(accounts.NewRepository(pool))
	ledgerService := ledger.NewService(ledger.NewRepository(pool), logger)
	journalsService := journals.NewService(journals.NewRepository(pool), cuentasService, logger)

	metrics := jobmetrics.NewMetrics(nil)
	integrityJob := jobs.NewLedgerIntegrityJob(ledgerService, logger, metrics)

	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
	}
	if cfg.SiigoEnabled() {
		siigoClient := bridge.NewClient(bridge.Config{
			BaseURL:   cfg.SiigoBaseURL,
			Username:  cfg.SiigoUsername,
			AccessKey: cfg.SiigoAccessKey,
			PartnerID: cfg.SiigoPartnerID,
			Timeout:   cfg.SiigoTimeout,
		})
		bridgeService := bridge.NewService(siigoClient, journalsService, logger)
		syncJob := jobs.NewBridgeSyncJob(bridgeService, logger, metrics)
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskBridgeSync, Handler: syncJob.Handle})
	} else {
		logger.Info("siigo bridge disabled, sync tasks will not be handled")
	}

	integrityTask, err := jobs.NewLedgerIntegrityTask(0, 0)
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron: []jobs.CronRegistration{
			{Spec: "45 2 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
