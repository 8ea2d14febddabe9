package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/ghl-booking-gateway/internal/app/bootstrap"
	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	envErr := godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}
	logger.Info("starting ghl-booking-gateway API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}

	srv := newServer(cfg, app.Handler)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// Detached sweeps and notifications get the rest of the grace period.
	if err := app.Close(ctx); err != nil {
		logger.Warn("background tasks did not finish", "error", err)
	}

	logger.Info("server stopped")
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GHLTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
