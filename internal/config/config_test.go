package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "GHL_API_KEY", "GHL_LOCATION_ID", "GHL_CALENDAR_ID", "CORS_ALLOWED_ORIGINS", "REDIS_ADDR", "APPOINTMENT_DURATION_MINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DefaultCalendarID != "jGIhsfyokB3JIAKIiV47" {
		t.Fatalf("expected default calendar id, got %s", cfg.DefaultCalendarID)
	}
	if cfg.GHLCalendarAPIVersion != "2021-04-15" || cfg.GHLContactsAPIVersion != "2021-07-28" {
		t.Fatalf("unexpected api versions %s / %s", cfg.GHLCalendarAPIVersion, cfg.GHLContactsAPIVersion)
	}
	if cfg.AppointmentDuration() != 30*time.Minute {
		t.Fatalf("expected 30m appointments, got %s", cfg.AppointmentDuration())
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected redis disabled by default, got %s", cfg.RedisAddr)
	}
	if cfg.HasCredentials() {
		t.Fatalf("expected no credentials by default")
	}
	if cfg.GhostContactEmail != "gen.gohighlevel@gmail.com" {
		t.Fatalf("unexpected ghost email %s", cfg.GhostContactEmail)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("GHL_API_KEY", " key-123 ")
	t.Setenv("GHL_LOCATION_ID", "loc-1")
	t.Setenv("GHL_TIMEOUT", "3s")
	t.Setenv("APPOINTMENT_DURATION_MINS", "45")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("TASK_TIMEOUT", "1m")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("EMAIL_PROVIDER", " SES ")
	t.Setenv("SES_FROM_EMAIL", "bookings@example.com")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:4566")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.GHLAPIKey != "key-123" {
		t.Fatalf("expected trimmed api key, got %q", cfg.GHLAPIKey)
	}
	if !cfg.HasCredentials() || !cfg.HasAPIKey() {
		t.Fatalf("expected credentials present")
	}
	if cfg.GHLTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.GHLTimeout)
	}
	if cfg.AppointmentDuration() != 45*time.Minute {
		t.Fatalf("expected duration override, got %s", cfg.AppointmentDuration())
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if cfg.TaskTimeout != time.Minute {
		t.Fatalf("expected task timeout override, got %s", cfg.TaskTimeout)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.EmailProvider != "ses" {
		t.Fatalf("expected normalised email provider, got %q", cfg.EmailProvider)
	}
	if cfg.SESFromEmail != "bookings@example.com" || cfg.AWSEndpointOverride != "http://localhost:4566" {
		t.Fatalf("unexpected SES settings %q / %q", cfg.SESFromEmail, cfg.AWSEndpointOverride)
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("APPOINTMENT_DURATION_MINS", "soon")
	t.Setenv("GHL_TIMEOUT", "fast")
	cfg := Load()
	if cfg.AppointmentDurationMins != 30 {
		t.Fatalf("expected default duration, got %d", cfg.AppointmentDurationMins)
	}
	if cfg.GHLTimeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.GHLTimeout)
	}
}

func TestNilConfigHelpers(t *testing.T) {
	var cfg *Config
	if cfg.HasCredentials() || cfg.HasAPIKey() {
		t.Fatal("nil config should report no credentials")
	}
	if cfg.AppointmentDuration() != 30*time.Minute {
		t.Fatal("nil config should fall back to 30m")
	}
}
