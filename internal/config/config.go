// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/notifyctl.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names (match schema.sql)
// --------------------------------------------------------------------------

const (
	SubscriptionsTable = "push_subscriptions"
	PreferencesTable   = "notification_preferences"
	HistoryTable       = "notification_history"
	WatermarksTable    = "notification_watermarks"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	LogLevel    slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Identity: header set by the upstream auth gateway
	UserIDHeader string

	// Web Push (VAPID)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string
	PushTTL         time.Duration

	// Cron trigger shared secret
	CronSecret string

	// Fan-out limits
	DispatchConcurrency  int
	GeneratorConcurrency int

	// Alert windows
	AlertTimezone   *time.Location
	WeekStart       time.Weekday
	BudgetThreshold string

	// Dedup
	RedisAddr     string
	RedisPassword string
	DedupWindow   time.Duration

	// Background work
	SchedulerEnabled bool
	AlertInterval    time.Duration
	ReportInterval   time.Duration
	ListenerEnabled  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	tz := envOr("ALERT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("ALERT_TIMEZONE %q: %w", tz, err)
	}

	weekStart, err := parseWeekday(envOr("WEEK_START", "sunday"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8080)),
		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    parseLevel(envOr("LOG_LEVEL", "info")),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		UserIDHeader: envOr("USER_ID_HEADER", "X-User-ID"),

		VAPIDPublicKey:  envOr("VAPID_PUBLIC_KEY", envOr("NEXT_PUBLIC_VAPID_PUBLIC_KEY", "")),
		VAPIDPrivateKey: envOr("VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber: envOr("VAPID_SUBSCRIBER", "admin@money-flow.app"),
		PushTTL:         envDuration("PUSH_TTL", 24*time.Hour),

		CronSecret: envOr("CRON_SECRET_TOKEN", ""),

		DispatchConcurrency:  envInt("DISPATCH_CONCURRENCY", 20),
		GeneratorConcurrency: envInt("GENERATOR_CONCURRENCY", 10),

		AlertTimezone:   loc,
		WeekStart:       weekStart,
		BudgetThreshold: envOr("BUDGET_ALERT_THRESHOLD", "0.8"),

		RedisAddr:     envOr("REDIS_ADDR", ""),
		RedisPassword: envOr("REDIS_PASS", ""),
		DedupWindow:   envDuration("DEDUP_WINDOW", 10*time.Minute),

		SchedulerEnabled: envBool("SCHEDULER_ENABLED", false),
		AlertInterval:    envDuration("ALERT_INTERVAL", 24*time.Hour),
		ReportInterval:   envDuration("REPORT_INTERVAL", 6*time.Hour),
		ListenerEnabled:  envBool("LISTENER_ENABLED", true),
	}, nil
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.VAPIDPublicKey == "" {
		missing = append(missing, "VAPID_PUBLIC_KEY")
	}
	if c.VAPIDPrivateKey == "" {
		missing = append(missing, "VAPID_PRIVATE_KEY")
	}
	if c.CronSecret == "" {
		missing = append(missing, "CRON_SECRET_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.DispatchConcurrency < 1 || c.GeneratorConcurrency < 1 {
		return fmt.Errorf("DISPATCH_CONCURRENCY and GENERATOR_CONCURRENCY must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasVAPID reports whether both VAPID keys are configured.
func (c *Config) HasVAPID() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("WEEK_START %q is not a weekday", s)
}
