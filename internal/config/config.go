package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Lab API
	LabAPIBaseURL   string        `env:"LAB_API_BASE_URL"`
	LabAPIToken     string        `env:"LAB_API_TOKEN"`
	LabAPITimeout   time.Duration `env:"LAB_API_TIMEOUT" envDefault:"10s"`
	LabAPIRateLimit float64       `env:"LAB_API_RATE_LIMIT" envDefault:"0"` // requests per second, 0 disables pacing
	LabAPIRateBurst int           `env:"LAB_API_RATE_BURST" envDefault:"1"`

	// Retry policy
	SampleMaxRetries       int           `env:"SAMPLE_MAX_RETRIES" envDefault:"3"`
	BatchMaxRetries        int           `env:"BATCH_MAX_RETRIES" envDefault:"2"`
	RetryInitialDelay      time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	RetryBackoffMultiplier float64       `env:"RETRY_BACKOFF_MULTIPLIER" envDefault:"2"`

	// Auth
	JWTSecret string `env:"JWT_SECRET"`

	// Supabase
	SupabaseURL            string `env:"SUPABASE_URL"`
	SupabasePublishableKey string `env:"SUPABASE_PUBLISHABLE_KEY"`
	SupabaseStorageBucket  string `env:"SUPABASE_STORAGE_BUCKET" envDefault:"accession-manifests"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Server
	Port        string        `env:"PORT" envDefault:"8080"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	WorkflowTTL time.Duration `env:"WORKFLOW_TTL" envDefault:"12h"`
}

// Load reads the configuration from the environment. A .env file (or the
// file named by ENV_FILE) is loaded first when present; variables already set
// in the environment win.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.ParseWithFuncs(cfg, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(time.Duration(0)): parseDuration,
	}); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LabAPIBaseURL == "" {
		return fmt.Errorf("LAB_API_BASE_URL is required")
	}
	if c.SampleMaxRetries < 1 {
		return fmt.Errorf("SAMPLE_MAX_RETRIES must be at least 1")
	}
	if c.BatchMaxRetries < 1 {
		return fmt.Errorf("BATCH_MAX_RETRIES must be at least 1")
	}
	if c.RetryBackoffMultiplier < 1 {
		return fmt.Errorf("RETRY_BACKOFF_MULTIPLIER must be at least 1")
	}
	if c.LabAPIRateLimit < 0 {
		return fmt.Errorf("LAB_API_RATE_LIMIT must not be negative")
	}
	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SupabaseURL != "" && c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

// SupabaseEnabled reports whether realtime and storage can be used.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabasePublishableKey != ""
}

// parseDuration accepts Go durations ("1500ms") and bare integers, which are
// read as milliseconds.
func parseDuration(value string) (interface{}, error) {
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(value)
}
