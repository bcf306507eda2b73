package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budget/internal/cache"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
	"budget/internal/reports"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store, closeStore := cli.OpenStore(logger, cfg)
	defer closeStore()

	events := cli.ConnectAMQP(logger, cfg)

	ledgerService := services.NewLedgerService(store, events)
	defer ledgerService.Close()

	reportService := reports.NewService(store, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager()
	reportService.RegisterCaches(cacheManager)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	materializer := services.NewMaterializer(store)

	srv := apphttp.NewServer(":"+cfg.Port, ledgerService, reportService, materializer, logger, apphttp.Options{})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting budget server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
