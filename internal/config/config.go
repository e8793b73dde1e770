package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Event broker backends.
const (
	BrokerMemory = "memory"
	BrokerRedis  = "redis"
	BrokerNATS   = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	Port          int
	DatabaseURL   string // empty selects the in-memory store
	DBMigrate     bool
	MigrationsDir string

	EventBroker string
	RedisURL    string
	NATSURL     string

	RateRPS   float64
	RateBurst int

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Leave off unless a proxy in front of the API overwrites those headers.
	TrustProxy bool

	AuthMode       string // dev or hmac
	AuthHMACSecret string

	WebhookMaxAttempts  int
	WebhookPollInterval time.Duration
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	var errs []error
	cfg := &Config{
		Environment:   getEnv("PICKPLAN_ENV", "development"),
		Port:          getEnvInt("PORT", 8080, &errs),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMigrate:     getEnvBool("DB_MIGRATE", true, &errs),
		MigrationsDir: getEnv("PICKPLAN_MIGRATIONS_DIR", "db/migrations"),

		RedisURL: os.Getenv("REDIS_URL"),
		NATSURL:  os.Getenv("NATS_URL"),

		RateRPS:    getEnvFloat("RATE_RPS", 20, &errs),
		RateBurst:  getEnvInt("RATE_BURST", 40, &errs),
		TrustProxy: getEnvBool("TRUST_PROXY", false, &errs),

		AuthMode:       strings.ToLower(getEnv("AUTH_MODE", "dev")),
		AuthHMACSecret: os.Getenv("AUTH_HMAC_SECRET"),

		WebhookMaxAttempts:  getEnvInt("WEBHOOK_MAX_ATTEMPTS", 10, &errs),
		WebhookPollInterval: getEnvDuration("WEBHOOK_POLL_INTERVAL", time.Second, &errs),
	}
	cfg.EventBroker = strings.ToLower(getEnv("PICKPLAN_EVENT_BROKER", defaultBroker(cfg)))

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", cfg.Port)
	}
	switch cfg.EventBroker {
	case BrokerMemory:
	case BrokerRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL must be set for the redis event broker")
		}
	case BrokerNATS:
		if cfg.NATSURL == "" {
			return nil, fmt.Errorf("NATS_URL must be set for the nats event broker")
		}
	default:
		return nil, fmt.Errorf("unsupported event broker %q", cfg.EventBroker)
	}
	switch cfg.AuthMode {
	case "dev":
	case "hmac":
		if cfg.AuthHMACSecret == "" {
			return nil, fmt.Errorf("AUTH_HMAC_SECRET must be provided when AUTH_MODE=hmac")
		}
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q", cfg.AuthMode)
	}
	if cfg.RateRPS < 0 || cfg.RateBurst < 0 {
		return nil, fmt.Errorf("RATE_RPS and RATE_BURST must be >= 0")
	}
	if cfg.WebhookMaxAttempts <= 0 {
		return nil, fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be > 0")
	}
	return cfg, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

func defaultBroker(c *Config) string {
	switch {
	case c.NATSURL != "":
		return BrokerNATS
	case c.RedisURL != "":
		return BrokerRedis
	}
	return BrokerMemory
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getEnvFloat(key string, def float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func getEnvBool(key string, def bool, errs *[]error) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	*errs = append(*errs, fmt.Errorf("%s: not a boolean: %q", key, os.Getenv(key)))
	return def
}

func getEnvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
