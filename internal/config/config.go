package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// GoHighLevel API
	GHLAPIKey             string
	GHLLocationID         string
	GHLBaseURL            string
	GHLCalendarAPIVersion string
	GHLContactsAPIVersion string
	GHLTimeout            time.Duration
	DefaultCalendarID     string

	// Booking behaviour
	AppointmentDurationMins int
	GhostContactEmail       string
	ContactFieldsFile       string

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Detached task runner
	TaskWorkers   int
	TaskQueueSize int
	TaskTimeout   time.Duration

	// Redis submission lock (disabled when RedisAddr is empty)
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	SubmissionLockTTL time.Duration

	// Booking notification email
	EmailProvider      string
	BookingNotifyEmail string
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string
	SESFromEmail       string

	// AWS (SES only)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GHLAPIKey:             strings.TrimSpace(getEnv("GHL_API_KEY", "")),
		GHLLocationID:         strings.TrimSpace(getEnv("GHL_LOCATION_ID", "")),
		GHLBaseURL:            getEnv("GHL_API_BASE_URL", "https://services.leadconnectorhq.com"),
		GHLCalendarAPIVersion: getEnv("GHL_CALENDAR_API_VERSION", "2021-04-15"),
		GHLContactsAPIVersion: getEnv("GHL_CONTACTS_API_VERSION", "2021-07-28"),
		GHLTimeout:            getEnvAsDuration("GHL_TIMEOUT", 15*time.Second),
		DefaultCalendarID:     getEnv("GHL_CALENDAR_ID", "jGIhsfyokB3JIAKIiV47"),

		AppointmentDurationMins: getEnvAsInt("APPOINTMENT_DURATION_MINS", 30),
		GhostContactEmail:       getEnv("GHOST_CONTACT_EMAIL", "gen.gohighlevel@gmail.com"),
		ContactFieldsFile:       getEnv("CONTACT_FIELDS_FILE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		TaskWorkers:   getEnvAsInt("TASK_WORKERS", 2),
		TaskQueueSize: getEnvAsInt("TASK_QUEUE_SIZE", 64),
		TaskTimeout:   getEnvAsDuration("TASK_TIMEOUT", 10*time.Second),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		SubmissionLockTTL: getEnvAsDuration("SUBMISSION_LOCK_TTL", 30*time.Second),

		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		BookingNotifyEmail: getEnv("BOOKING_NOTIFY_EMAIL", ""),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", "Booking Gateway"),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// HasCredentials reports whether both the GHL API key and location id are set.
func (c *Config) HasCredentials() bool {
	return c != nil && c.GHLAPIKey != "" && c.GHLLocationID != ""
}

// HasAPIKey reports whether the GHL API key is set. Slot lookups need nothing else.
func (c *Config) HasAPIKey() bool {
	return c != nil && c.GHLAPIKey != ""
}

// AppointmentDuration returns the fixed appointment length.
func (c *Config) AppointmentDuration() time.Duration {
	if c == nil || c.AppointmentDurationMins <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.AppointmentDurationMins) * time.Minute
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
