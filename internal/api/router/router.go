package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/ghl-booking-gateway/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/ghl-booking-gateway/internal/http/middleware"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// netlifyPrefix keeps the legacy serverless function paths working.
const netlifyPrefix = "/.netlify/functions"

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Availability       *handlers.AvailabilityHandler
	Appointments       *handlers.AppointmentHandler
	Contacts           *handlers.ContactHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP limit for the write endpoints; zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Handlers check the method themselves so a wrong verb gets the JSON
	// 405 body instead of chi's plain text one.
	if cfg.Availability != nil {
		mount(r, "get-free-slots", cfg.Availability.GetFreeSlots)
		mount(r, "calendar-month", cfg.Availability.GetCalendarMonth)
	}

	r.Group(func(writes chi.Router) {
		writes.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		if cfg.Appointments != nil {
			mount(writes, "create-appointment", cfg.Appointments.CreateAppointment)
		}
		if cfg.Contacts != nil {
			mount(writes, "create-contact", cfg.Contacts.CreateContact)
		}
	})

	return r
}

func mount(r chi.Router, name string, h http.HandlerFunc) {
	r.HandleFunc("/api/"+name, h)
	r.HandleFunc(netlifyPrefix+"/"+name, h)
}
