package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL string

	// Market data configuration
	DexScreenerBaseURL string
	TrustedVenue       string
	MarketCacheTTL     time.Duration
	MarketRateLimit    int // requests per minute

	// NATS configuration (optional; empty disables report publishing)
	NATSURL string

	// Analysis configuration
	LargestAccountsLimit   int
	OwnerLookupConcurrency int
	WhaleMinPct            float64
	WhaleLimit             int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	// Market data configuration
	cfg.DexScreenerBaseURL = getEnvOrDefault("DEXSCREENER_BASE_URL", "https://api.dexscreener.com")
	cfg.TrustedVenue = getEnvOrDefault("TRUSTED_VENUE", "raydium")

	cacheTTL, err := parseDuration("MARKET_CACHE_TTL", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MarketCacheTTL = cacheTTL
	}

	rateLimit, err := parseInt("MARKET_RATE_LIMIT", 300)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MarketRateLimit = rateLimit
	}

	// NATS configuration (optional)
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Analysis configuration
	largestLimit, err := parseInt("LARGEST_ACCOUNTS_LIMIT", 20)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.LargestAccountsLimit = largestLimit
	}

	concurrency, err := parseInt("OWNER_LOOKUP_CONCURRENCY", 8)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.OwnerLookupConcurrency = concurrency
	}

	whaleMinPct, err := parseFloat("WHALE_MIN_PCT", 1.0)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.WhaleMinPct = whaleMinPct
	}

	whaleLimit, err := parseInt("WHALE_LIMIT", 20)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.WhaleLimit = whaleLimit
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.TrustedVenue == "" {
		errs = append(errs, fmt.Errorf("TrustedVenue is required"))
	}

	if c.LargestAccountsLimit < 1 || c.LargestAccountsLimit > 20 {
		errs = append(errs, fmt.Errorf("LargestAccountsLimit must be between 1 and 20, got %d", c.LargestAccountsLimit))
	}

	if c.OwnerLookupConcurrency < 1 {
		errs = append(errs, fmt.Errorf("OwnerLookupConcurrency must be at least 1, got %d", c.OwnerLookupConcurrency))
	}

	if c.WhaleMinPct <= 0 || c.WhaleMinPct > 100 {
		errs = append(errs, fmt.Errorf("WhaleMinPct must be in (0, 100], got %v", c.WhaleMinPct))
	}

	if c.WhaleLimit < 1 {
		errs = append(errs, fmt.Errorf("WhaleLimit must be at least 1, got %d", c.WhaleLimit))
	}

	if c.MarketRateLimit < 1 {
		errs = append(errs, fmt.Errorf("MarketRateLimit must be at least 1, got %d", c.MarketRateLimit))
	}

	if c.MarketCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("MarketCacheTTL cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
