package main

import (
	"os"

	"dokon/internal/backend"
	"dokon/internal/cli"
	"dokon/internal/core"
	apphttp "dokon/internal/http"
	"dokon/internal/ledger"
	"dokon/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = logger.WithComponent(log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		return 1
	}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		return 1
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	store, err := ledger.Open(ctx, result.Store, ledger.Options{
		DefaultRate: cfg.DefaultRate,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err)
		return 1
	}

	formatter := core.NewFormatter(cfg.LocaleTag(), cfg.BaseLabel, cfg.ForeignSymbol)
	srv := apphttp.NewServer(":"+cfg.Port, store, formatter, logger)

	logger.Info("Starting dokon", log.FieldOperation, log.OpStartup, "port", cfg.Port, "backend", cfg.DataBackend)
	if err := cli.Serve(ctx, logger, &srv.Server, cfg.ShutdownTimeout); err != nil {
		logger.Error("Server stopped", log.FieldError, err)
		return 1
	}
	logger.Info("Server exited gracefully")
	return 0
}
