package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bommel/internal/cli"
	"bommel/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	// Logs go to stderr so command output stays pipeable.
	logger := cli.SetupLogger(os.Stderr, cfg.LogLevel, log.ComponentApp)

	app := cli.NewApp(cfg, logger)
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
