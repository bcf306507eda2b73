package main

import (
	"time"

	"budget/internal/cli"
	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentRecurrence)
	cfg := cli.LoadAndValidateConfig(logger)

	store, closeStore := cli.OpenStore(logger, cfg)
	defer closeStore()

	materializer := services.NewMaterializer(store)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Recurrence materializer configured",
		"interval", cfg.MaterializeInterval,
		"backend", cfg.DataBackend)

	runOnce := func(at time.Time) {
		result, err := materializer.ProcessDueTemplates(ctx, core.DateOf(at))
		if err != nil {
			logger.Error("Materialization run failed", "error", err,
				"created", result.Created, "skipped", result.Skipped)
			return
		}
		logger.Info("Materialization run complete",
			"templates_checked", result.TemplatesChecked,
			"created", result.Created,
			"skipped", result.Skipped)
	}

	runOnce(time.Now())

	go func() {
		ticker := time.NewTicker(cfg.MaterializeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runOnce(now)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring worker stopped")
}
