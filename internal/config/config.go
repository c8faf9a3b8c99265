// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the simulation and optimization parameters.
const (
	DefaultSimulationCount = 10000
	DefaultRiskFreeRate    = 0.02
	DefaultAnnualization   = 252
	DefaultPortfolioValue  = 10_000_000
	DefaultLookbackDays    = 252
	DefaultPort            = 8090
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for the sqlite databases
	Port    int
	DevMode bool

	LogLevel string

	// Universe is the default set of tickers used by scheduled runs and by
	// API requests that do not name their own.
	Universe []string

	// Simulation parameters
	SimulationCount int
	PortfolioValue  float64
	RiskFreeRate    float64
	Annualization   int
	LookbackDays    int

	// Seed is optional. When nil, each run generates and records its own seed
	// so results stay reproducible.
	Seed *uint64

	// Global weight bounds for long-only portfolios.
	WeightMin float64
	WeightMax float64

	// RunSchedule is an optional cron expression for scheduled runs
	// (empty disables the scheduler).
	RunSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FRONTIER_DATA_DIR", "./data")
	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDir,
		Port:            getEnvInt("PORT", DefaultPort),
		DevMode:         getEnvBool("DEV_MODE", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Universe:        splitList(getEnv("UNIVERSE", "")),
		SimulationCount: getEnvInt("SIM_COUNT", DefaultSimulationCount),
		PortfolioValue:  getEnvFloat("PORTFOLIO_VALUE", DefaultPortfolioValue),
		RiskFreeRate:    getEnvFloat("RISK_FREE_RATE", DefaultRiskFreeRate),
		Annualization:   getEnvInt("ANNUALIZATION", DefaultAnnualization),
		LookbackDays:    getEnvInt("LOOKBACK_DAYS", DefaultLookbackDays),
		WeightMin:       getEnvFloat("WEIGHT_MIN", 0.0),
		WeightMax:       getEnvFloat("WEIGHT_MAX", 1.0),
		RunSchedule:     getEnv("RUN_SCHEDULE", ""),
	}

	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_SEED %q: %w", v, err)
		}
		cfg.Seed = &seed
	}

	if cfg.PortfolioValue <= 0 {
		return nil, fmt.Errorf("PORTFOLIO_VALUE must be positive, got %v", cfg.PortfolioValue)
	}
	if cfg.Annualization <= 0 {
		return nil, fmt.Errorf("ANNUALIZATION must be positive, got %d", cfg.Annualization)
	}
	if cfg.WeightMin > cfg.WeightMax {
		return nil, fmt.Errorf("WEIGHT_MIN (%v) must not exceed WEIGHT_MAX (%v)", cfg.WeightMin, cfg.WeightMax)
	}

	return cfg, nil
}

// HistoryDBPath returns the path of the price history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ResultsDBPath returns the path of the simulation results database.
func (c *Config) ResultsDBPath() string {
	return filepath.Join(c.DataDir, "results.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
