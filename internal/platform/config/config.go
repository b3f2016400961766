package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	// CleanupSpec is the cron expression for the notification cleanup sweep.
	CleanupSpec string
	// NotificationRetention is how long expired notifications are kept
	// before the cleanup sweep hard-deletes them.
	NotificationRetention time.Duration
	ShutdownTimeout       time.Duration
}

// RedisConfig configures the optional unread-count cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TTL          time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:                  envOr("EVENTDESK_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("EVENTDESK_DATABASE_URL"),
		CleanupSpec:           envOr("EVENTDESK_CLEANUP_SPEC", "0 * * * *"),
		NotificationRetention: envDurationOr("EVENTDESK_NOTIFICATION_RETENTION", 30*24*time.Hour),
		ShutdownTimeout:       envDurationOr("EVENTDESK_SHUTDOWN_TIMEOUT", 10*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("EVENTDESK_REDIS_URL"),
			PoolSize:     envIntOr("EVENTDESK_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("EVENTDESK_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("EVENTDESK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("EVENTDESK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("EVENTDESK_REDIS_WRITE_TIMEOUT", 3*time.Second),
			TTL:          envDurationOr("EVENTDESK_REDIS_TTL", time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
