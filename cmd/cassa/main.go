package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"cassa/internal/amqp"
	"cassa/internal/backend"
	"cassa/internal/cli"
	apphttp "cassa/internal/http"
	"cassa/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("cassa")
	cfg := cli.LoadAndValidateConfig(logger)

	cache := cli.InitSnapshotCache(logger, cfg.SQLiteDBPath)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	result, err := factory.CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize remote store", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	logger.Info("Remote store initialized", "backend", backendCfg.Type)

	// AMQP is optional: without it remote writes happen in-process on a
	// debounce instead of through the worker.
	var queue *amqp.Client
	if cfg.AMQPURL != "" {
		queue, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, using debounced direct sync")
	}

	svc := services.NewLedgerService(cache, cfg.LedgerKey, services.Options{
		Remote:       result.Store,
		Queue:        queue,
		SaveDebounce: cfg.SaveDebounce,
	})
	if err := svc.Load(context.Background()); err != nil {
		logger.Error("Failed to load ledger", "error", err, "key", cfg.LedgerKey)
		os.Exit(1)
	}
	logger.Info("Ledger loaded", "key", cfg.LedgerKey, "version", svc.State().Version)

	// The paid flags reset at the payday boundary. Check once at startup,
	// then every morning.
	checkRollover := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		reset, err := svc.CheckRollover(ctx)
		if err != nil {
			logger.Error("Rollover check failed", "error", err)
			return
		}
		if reset {
			logger.Info("New cycle started", "version", svc.State().Version)
		}
	}
	checkRollover()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 6 * * *", checkRollover); err != nil {
		logger.Error("Failed to schedule rollover check", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	srv := apphttp.NewServer(":"+cfg.Port, svc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		<-scheduler.Stop().Done()
		if err := svc.Close(); err != nil {
			logger.Error("Ledger service close error", "error", err)
		}
		if result.Cleanup != nil {
			result.Cleanup()
		}
	})

	logger.Info("Starting cassa server", "port", cfg.Port, "backend", backendCfg.Type)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	slog.Info("Server stopped gracefully")
}
