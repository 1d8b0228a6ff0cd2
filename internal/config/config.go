// Package config parses and validates all application configuration from
// environment variables using caarlos0/env/v11.
//
// Call [Load] once at startup; pass the resulting [Config] to subcommands.
// Server exits if any field tagged "required" is missing.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration sourced from environment variables.
// Field defaults match .env.example.
type Config struct {
	// ── Database ─────────────────────────────────────────────────────────────────
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	DBMaxConns        int32         `env:"DB_MAX_CONNS"          envDefault:"25"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// ── Cache backend ────────────────────────────────────────────────────────────
	RedisAddr        string        `env:"REDIS_ADDR"         envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB"           envDefault:"0"`
	RedisDialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"2s"`
	RedisReadTimeout time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"1s"`
	RedisMaxRetries  int           `env:"REDIS_MAX_RETRIES"  envDefault:"2"`

	// ── Cache policy ─────────────────────────────────────────────────────────────
	// Evaluation results are short-lived because the underlying records
	// change between requests; definitions and combinations live longer.
	CombinationTTL          time.Duration `env:"COMBINATION_TTL"              envDefault:"30m"`
	TriggerDefTTL           time.Duration `env:"TRIGGER_DEF_TTL"              envDefault:"1h"`
	TriggerEvalTTL          time.Duration `env:"TRIGGER_EVAL_TTL"             envDefault:"60s"`
	CacheMaxEntriesPerScope int           `env:"CACHE_MAX_ENTRIES_PER_PREFIX" envDefault:"1000"`

	// ── Server ───────────────────────────────────────────────────────────────────
	ListenAddr             string `env:"LISTEN_ADDR"              envDefault:":8080"`
	AppEnv                 string `env:"APP_ENV"                  envDefault:"development"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"30"`

	// ── Rate limiting ────────────────────────────────────────────────────────────
	RateLimitEvictTTL time.Duration `env:"RATE_LIMIT_EVICT_TTL" envDefault:"15m"`

	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses and returns Config from environment variables.
// Returns an error if any required field is missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
