// Package bootstrap wires the gateway's services from configuration. Both the
// long-running server and the Lambda entry point build through here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/ghl-booking-gateway/internal/api/router"
	"github.com/wolfman30/ghl-booking-gateway/internal/booking"
	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
	"github.com/wolfman30/ghl-booking-gateway/internal/contacts"
	"github.com/wolfman30/ghl-booking-gateway/internal/ghl"
	"github.com/wolfman30/ghl-booking-gateway/internal/http/handlers"
	"github.com/wolfman30/ghl-booking-gateway/internal/notify"
	"github.com/wolfman30/ghl-booking-gateway/internal/observability/metrics"
	"github.com/wolfman30/ghl-booking-gateway/internal/tasks"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// App is a fully wired gateway.
type App struct {
	Handler http.Handler
	Runner  *tasks.Runner
	Gateway *booking.Gateway

	redis *redis.Client
}

// Options overrides pieces of the wiring, mostly for tests.
type Options struct {
	// Registry receives the gateway metrics and backs /metrics. A fresh
	// registry is created when nil.
	Registry *prometheus.Registry
	// HTTPClient replaces the GHL client's transport.
	HTTPClient *http.Client
	// EmailSender skips provider selection when set.
	EmailSender notify.EmailSender
}

// Build wires the GHL client, contact reconciler, booking gateway, task
// runner and router. Missing GHL credentials are not an error; the handlers
// answer 500 "Server configuration error" instead.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	gatewayMetrics := metrics.NewGatewayMetrics(reg)

	if !cfg.HasCredentials() {
		logger.Warn("GHL credentials incomplete; booking endpoints will report a configuration error",
			"has_api_key", cfg.HasAPIKey(),
			"has_location_id", cfg.GHLLocationID != "",
		)
	}

	clientOpts := []ghl.Option{ghl.WithMetrics(gatewayMetrics)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, ghl.WithHTTPClient(opts.HTTPClient))
	}
	client := ghl.NewClient(ghl.Config{
		BaseURL:         cfg.GHLBaseURL,
		APIKey:          cfg.GHLAPIKey,
		CalendarVersion: cfg.GHLCalendarAPIVersion,
		ContactsVersion: cfg.GHLContactsAPIVersion,
		Timeout:         cfg.GHLTimeout,
	}, logger, clientOpts...)

	fields, err := contacts.LoadFieldMap(cfg.ContactFieldsFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: contact fields: %w", err)
	}

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	lock := BuildSubmissionLock(redisClient, cfg, logger)
	reconciler := contacts.NewReconciler(client, cfg.GHLLocationID, fields, lock, logger, gatewayMetrics)
	sweeper := contacts.NewSweeper(client, cfg.GhostContactEmail, logger, gatewayMetrics)

	runner := tasks.NewRunner(tasks.Config{
		Workers:   cfg.TaskWorkers,
		QueueSize: cfg.TaskQueueSize,
		Timeout:   cfg.TaskTimeout,
	}, logger, gatewayMetrics)

	gatewayOpts := []booking.Option{booking.WithMetrics(gatewayMetrics)}
	emailSender := opts.EmailSender
	provider := "custom"
	if emailSender == nil {
		emailSender, provider, err = BuildEmailSender(ctx, cfg, logger)
		if err != nil {
			_ = runner.Shutdown(ctx)
			return nil, err
		}
	}
	if notifier := notify.NewBookingNotifier(emailSender, cfg.BookingNotifyEmail, logger); notifier != nil {
		gatewayOpts = append(gatewayOpts, booking.WithNotifier(notifier))
		logger.Info("booking notifications enabled", "provider", provider)
	}

	bookingCfg := booking.Config{
		CalendarID: cfg.DefaultCalendarID,
		LocationID: cfg.GHLLocationID,
		Duration:   cfg.AppointmentDuration(),
	}
	gateway := booking.NewGateway(client, bookingCfg, sweeper, runner, logger, gatewayOpts...)
	logger.Info("booking gateway configured", "booking", bookingCfg.String())

	handler := router.New(&router.Config{
		Logger:             logger,
		Availability:       handlers.NewAvailabilityHandler(gateway, cfg, logger),
		Appointments:       handlers.NewAppointmentHandler(gateway, cfg, logger),
		Contacts:           handlers.NewContactHandler(reconciler, cfg, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	return &App{
		Handler: handler,
		Runner:  runner,
		Gateway: gateway,
		redis:   redisClient,
	}, nil
}

// Close drains the task runner and releases Redis.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	err := a.Runner.Shutdown(ctx)
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
