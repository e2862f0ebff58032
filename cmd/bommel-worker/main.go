package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bommel/internal/amqp"
	"bommel/internal/backend"
	"bommel/internal/cli"
	"bommel/internal/core"
	"bommel/internal/log"
	"bommel/internal/services"
	gsheet "bommel/internal/sheets/google"
	"bommel/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Stdout, "info", log.ComponentWorker)

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger = cli.SetupLogger(os.Stdout, cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting bommel-worker")

	if !cfg.ExportEnabled() {
		logger.Error("Nothing to do: GOOGLE_SPREADSHEET_ID is not set")
		os.Exit(1)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	// The export always shows the configured mode; the web mode is per request.
	mode := core.StatisticsMode{IncludeDrafts: cfg.IncludeDrafts, Aggregate: cfg.Aggregate}
	coord := services.NewCoordinator(res.Backend, cfg.OrganizationID, mode, logger)
	exportWorker := worker.NewExportWorker(coord, sheetsClient, logger.WithComponent(log.ComponentWorker))

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 10*time.Second, nil)

	// Startup export catches changes made while the worker was down.
	if _, err := exportWorker.Export(ctx); err != nil {
		logger.Error("Startup export failed", log.FieldError, err)
	}

	if cfg.EventsEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeTreeChanges(ctx, exportWorker.HandleTreeChange); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Tree change consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled, exporting on the interval only")
	}

	exportWorker.RunPeriodic(ctx, cfg.ExportInterval)
	<-done
	logger.Info("bommel-worker stopped")
}
