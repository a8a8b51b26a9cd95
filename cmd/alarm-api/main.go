// Package main is the entry point for the alarm webhook API.
//
// It loads configuration, wires the notification pipeline and serves
// POST /v1/alarms and GET /health. When ALARM_QUEUE_URL is set, received
// events are enqueued for cmd/alarm-worker instead of being handled inline.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"safirnotify/internal/api"
	"safirnotify/internal/app"
	"safirnotify/internal/config"
	"safirnotify/internal/logging"
	"safirnotify/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: cfg.IsLocal(),
		Service: cfg.Service + "-api",
	})
	defer logging.Sync(logger)

	logger.Info("alarm API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"queued", cfg.AWS.AlarmQueueURL != "",
	)

	components, err := app.Build(context.Background(), cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("wiring pipeline: %w", err)
	}

	srvCfg := api.Config{
		Handler:        components.Handler,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthProbes:   components.Probes,
	}
	// A nil *AlarmEventPublisher must not become a non-nil interface.
	if components.Publisher != nil {
		srvCfg.Publisher = components.Publisher
	}

	srv, err := api.NewServer(srvCfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server with graceful shutdown.
func runHTTPServer(srv *api.Server, cfg *config.Config, logger types.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
