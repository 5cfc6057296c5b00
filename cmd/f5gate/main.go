// Package main is the entry point for the f5gate server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"f5gate/config"
	"f5gate/internal/app"
	"f5gate/internal/logging"
	"f5gate/internal/observability"
	"f5gate/internal/providers"
	"f5gate/internal/providers/f5ai"
	"f5gate/internal/version"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, os.Stdout)
	slog.SetDefault(logger)

	slog.Info("starting f5gate",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	factory := providers.NewProviderFactory()
	factory.Add(f5ai.Registration)

	// Hooks must be set before the provider is created
	if cfg.Metrics.Enabled {
		factory.SetHooks(observability.NewPrometheusHooks())
	}

	application, err := app.New(context.Background(), app.Config{
		AppConfig: cfg,
		Factory:   factory,
		Logger:    logger,
	})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
