// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// LLMConfig configures the text-generation backend used for planning.
type LLMConfig struct {
	Enabled     bool
	Endpoint    string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Config holds the configuration for the analytics server.
type Config struct {
	DataDir             string // directory holding the dataset CSV files
	VocabularyFile      string // optional YAML override for the keyword detector
	HistoryDBPath       string // SQLite file for query history; "" disables history
	ListenAddr          string
	LogLevel            string // debug, info, warn, error (default "info")
	Env                 string // "development" (default) or "production"
	DataRefreshSchedule string // optional cron spec for reloading datasets
	LoaderCacheSize     int

	LLM LLMConfig

	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	// Warnings collects non-fatal problems found while loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DataDir:             envDefault("DATA_DIR", "data"),
		VocabularyFile:      os.Getenv("VOCABULARY_FILE"),
		HistoryDBPath:       envDefault("HISTORY_DB_PATH", "analytics_history.sqlite"),
		ListenAddr:          envDefault("LISTEN_ADDR", ":8080"),
		LogLevel:            envDefault("LOG_LEVEL", "info"),
		Env:                 os.Getenv("ENV"),
		DataRefreshSchedule: strings.TrimSpace(os.Getenv("DATA_REFRESH_SCHEDULE")),
		LLM: LLMConfig{
			Enabled:  parseBoolEnvDefault("LLM_ENABLED", true),
			Endpoint: envDefault("LLM_ENDPOINT", "http://localhost:11434"),
			Model:    envDefault("LLM_MODEL", "mistral"),
			Timeout:  60 * time.Second,
		},
		RateLimitRPS:       20,
		RateLimitBurst:     40,
		LoaderCacheSize:    16,
		CORSAllowedOrigins: []string{"*"},
	}

	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid LLM_TIMEOUT %q: must be a positive duration such as 30s", v)
		}
		cfg.LLM.Timeout = d
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LLM_TEMPERATURE %q: %w", v, err)
		}
		cfg.LLM.Temperature = f
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimitRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid RATE_LIMIT_RPS %q", v))
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid RATE_LIMIT_BURST %q", v))
		}
	}
	if v := os.Getenv("LOADER_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LoaderCacheSize = n
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring invalid LOADER_CACHE_SIZE %q", v))
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	if cfg.DataRefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.DataRefreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid DATA_REFRESH_SCHEDULE %q: %w", cfg.DataRefreshSchedule, err)
		}
	}
	if !cfg.LLM.Enabled {
		cfg.Warnings = append(cfg.Warnings, "LLM_ENABLED=false: every query is planned by the keyword detector")
	}
	if cfg.HistoryDBPath == "" {
		cfg.Warnings = append(cfg.Warnings, "HISTORY_DB_PATH is empty: query history is disabled")
	}

	if cfg.IsProduction() && len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
	}
	return cfg, nil
}

func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	}
	return defaultVal
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines are KEY=VALUE; comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Variables already in the environment win.
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
