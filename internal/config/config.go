package config

import (
	"os"
	"strconv"
	"time"

	"github.com/docledger/docledger-go/internal/domain"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// External services
	ExtractorURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	SnapshotCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase (the document store)
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Reconciliation policy and thresholds
	AutoCreateAccounts      bool
	MinFuzzyLength          int
	AmountTolerancePercent  float64
	AmountToleranceAbsolute float64
	MinRecurringMonths      int
	MaxHintSuggestions      int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ExtractorURL: getEnv("EXTRACTOR_API_URL", "http://localhost:8091"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		SnapshotCacheTTL: getEnvDuration("SNAPSHOT_CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		AutoCreateAccounts:      getEnvBool("RECONCILE_AUTO_CREATE_ACCOUNTS", false),
		MinFuzzyLength:          getEnvInt("RECONCILE_MIN_FUZZY_LENGTH", 4),
		AmountTolerancePercent:  getEnvFloat("RECONCILE_AMOUNT_TOLERANCE_PCT", 0.02),
		AmountToleranceAbsolute: getEnvFloat("RECONCILE_AMOUNT_TOLERANCE_ABS", 0.5),
		MinRecurringMonths:      getEnvInt("RECONCILE_MIN_RECURRING_MONTHS", 2),
		MaxHintSuggestions:      getEnvInt("RECONCILE_MAX_HINT_SUGGESTIONS", 3),
	}
}

// Validate checks the configuration that must be present before any
// document is processed. Store credentials are mandatory: without them
// the service cannot persist anything.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return &domain.ErrConfiguration{Field: "SUPABASE_URL", Message: "required"}
	}
	if c.SupabaseServiceKey == "" {
		return &domain.ErrConfiguration{Field: "SUPABASE_SERVICE_ROLE_KEY", Message: "required"}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
