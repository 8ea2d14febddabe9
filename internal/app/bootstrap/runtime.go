package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/ghl-booking-gateway/internal/config"
	"github.com/wolfman30/ghl-booking-gateway/internal/contacts"
	"github.com/wolfman30/ghl-booking-gateway/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSubmissionLock returns the Redis-backed per-email lock, or a no-op
// lock when Redis is not configured.
func BuildSubmissionLock(client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) contacts.SubmissionLock {
	if client == nil || cfg == nil {
		return contacts.NoopLock{}
	}
	if logger != nil {
		logger.Info("contact submission lock enabled", "ttl", cfg.SubmissionLockTTL)
	}
	return contacts.NewRedisLock(client, cfg.SubmissionLockTTL)
}
