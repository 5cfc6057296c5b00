// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the f5gate server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"f5gate/config"
	"f5gate/internal/core"
	"f5gate/internal/httpclient"
	"f5gate/internal/providers"
	"f5gate/internal/server"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	provider core.Provider
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig is the loaded application configuration.
	AppConfig *config.Config

	// Factory provides the ProviderFactory used to construct the provider.
	// Hooks set on it before New are passed to the provider.
	Factory *providers.ProviderFactory

	// Logger receives the request log. Nil means slog.Default().
	Logger *slog.Logger
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(_ context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("factory is required")
	}

	appCfg := cfg.AppConfig

	app := &App{
		config: appCfg,
	}

	cfg.Factory.SetHTTPClient(httpclient.NewHTTPClient(clientConfig(appCfg.HTTP)))

	provider, err := cfg.Factory.Create(appCfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider: %w", err)
	}
	app.provider = provider

	app.logStartupInfo()

	app.server = server.New(provider, &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
		Logger:          cfg.Logger,
	})

	return app, nil
}

// clientConfig applies the configured timeouts (seconds) to the transport defaults.
func clientConfig(cfg config.HTTPConfig) *httpclient.ClientConfig {
	cc := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		cc.Timeout = time.Duration(cfg.Timeout) * time.Second
	}
	if cfg.ResponseHeaderTimeout > 0 {
		cc.ResponseHeaderTimeout = time.Duration(cfg.ResponseHeaderTimeout) * time.Second
	}
	return &cc
}

// Provider returns the upstream provider.
func (a *App) Provider() core.Provider {
	return a.provider
}

// Handler returns the HTTP handler of the gateway.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, honoring the context deadline.
// It is idempotent; calls after the first are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	// Security warnings
	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: F5GATE_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set F5GATE_MASTER_KEY environment variable to secure this gateway")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.Provider.APIKey == "" {
		slog.Warn("F5AI_API_KEY not set - upstream requests will be unauthenticated")
	}

	slog.Info("provider configured",
		"type", cfg.Provider.Type,
		"api_base", cfg.Provider.APIBase,
		"api_type", cfg.Provider.APIType,
		"profile", cfg.Provider.Profile,
		"use_legacy_completions", cfg.Provider.UseLegacyCompletions,
	)
}
