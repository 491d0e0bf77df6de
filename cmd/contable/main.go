package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clinicamia/contable/internal/accounting/accounts"
	accountinghttp "github.com/clinicamia/contable/internal/accounting/http"
	"github.com/clinicamia/contable/internal/accounting/journals"
	"github.com/clinicamia/contable/internal/accounting/ledger"
	"github.com/clinicamia/contable/internal/accounting/periods"
	"github.com/clinicamia/contable/internal/accounting/reports"
	"github.com/clinicamia/contable/internal/accounting/sources"
	"github.com/clinicamia/contable/internal/app"
	"github.com/clinicamia/contable/internal/observability"
	"github.com/clinicamia/contable/internal/platform/cache"
	"github.com/clinicamia/contable/internal/platform/db"
	"github.com/clinicamia/contable/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Statements are recomputed on every request without the cache.
		logger.Warn("redis no disponible, cache de reportes deshabilitado", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	cuentasService := accounts.NewService(accounts.NewRepository(pool))
	ledgerService := ledger.NewService(ledger.NewRepository(pool), logger)
	periodsService := periods.NewService(periods.NewRepository(pool), ledgerService, logger)
	journalsService := journals.NewService(journals.NewRepository(pool), cuentasService, logger)
	periodsService.WithAsientosCierre(journalsService)
	sourcesService := sources.NewService(sources.NewRepository(pool), journalsService, logger)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(ledgerService, reportCache, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	var enqueuer accountinghttp.Enqueuer
	if cfg.SiigoEnabled() {
		enqueuer = jobClient
	}

	accountingHandler := accountinghttp.NewHandler(
		logger,
		cuentasService,
		periodsService,
		journalsService,
		ledgerService,
		reportsService,
		sourcesService,
		enqueuer,
	)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accountingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
