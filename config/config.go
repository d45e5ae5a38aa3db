// Package config loads runtime configuration from the environment, with an
// optional .env file for local development. Every knob has a safe default;
// only the oracle credentials are genuinely external.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the validated runtime configuration.
type Config struct {
	// Oracle endpoint. APIKey empty means the advisor runs oracle-less and
	// every decision comes from the rule fallback.
	OracleAPIKey         string
	OracleBaseURL        string
	OracleModel          string
	OracleMaxAttempts    int
	OracleBaseDelay      time.Duration
	OracleMaxDelay       time.Duration
	OracleAttemptTimeout time.Duration

	HistoryDBPath string
	IntelDBPath   string
	AuditLogPath  string

	SafeMaxRatio float64
	CeilingRatio float64

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		OracleAPIKey:  firstEnv("ORACLE_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY"),
		OracleBaseURL: envStr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OracleModel:   envStr("ORACLE_MODEL", ""),

		HistoryDBPath: envStr("HISTORY_DB_PATH", "history.db"),
		IntelDBPath:   envStr("INTEL_DB_PATH", "intel.db"),
		AuditLogPath:  envStr("AUDIT_LOG_PATH", "audit.cbor"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.OracleMaxAttempts, err = envInt("ORACLE_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.OracleBaseDelay, err = envDuration("ORACLE_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.OracleMaxDelay, err = envDuration("ORACLE_MAX_DELAY", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.OracleAttemptTimeout, err = envDuration("ORACLE_ATTEMPT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SafeMaxRatio, err = envFloat("SAFE_MAX_RATIO", 1.00); err != nil {
		return nil, err
	}
	if cfg.CeilingRatio, err = envFloat("CEILING_RATIO", 1.00); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges. Called by Load; exported for configs built by
// hand in tests and tools.
func (c *Config) Validate() error {
	if c.SafeMaxRatio <= 0 || c.SafeMaxRatio > 1 {
		return fmt.Errorf("SAFE_MAX_RATIO must be in (0, 1], got %.2f", c.SafeMaxRatio)
	}
	if c.CeilingRatio <= 0 || c.CeilingRatio > 1 {
		return fmt.Errorf("CEILING_RATIO must be in (0, 1], got %.2f", c.CeilingRatio)
	}
	if c.OracleMaxAttempts < 1 {
		return fmt.Errorf("ORACLE_MAX_ATTEMPTS must be at least 1, got %d", c.OracleMaxAttempts)
	}
	if c.OracleBaseDelay <= 0 || c.OracleMaxDelay < c.OracleBaseDelay {
		return fmt.Errorf("oracle delays invalid: base %s, max %s", c.OracleBaseDelay, c.OracleMaxDelay)
	}
	if c.HistoryDBPath == "" || c.IntelDBPath == "" {
		return fmt.Errorf("database paths must not be empty")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
