// Package config loads service settings from config/valuation.yaml, .env and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"equity_valuation/pkg/core/assumption"
)

// DefaultPath is where Load looks when no path is given
const DefaultPath = "config/valuation.yaml"

// Config holds application configuration
type Config struct {
	Server      ServerConfig            `yaml:"server"`
	Log         LogConfig               `yaml:"log"`
	Database    DatabaseConfig          `yaml:"database"`
	Store       StoreConfig             `yaml:"store"`
	Market      MarketDefaults          `yaml:"market"`
	Assumptions assumption.BuildOptions `yaml:"assumptions"`
}

type ServerConfig struct {
	Port    int  `yaml:"port"`
	DevMode bool `yaml:"dev_mode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // Empty: file-backed run store
}

type StoreConfig struct {
	Dir string `yaml:"dir"`
}

// MarketDefaults fill market inputs a request leaves at zero
type MarketDefaults struct {
	RiskFreeRate      float64 `yaml:"risk_free_rate"`
	EquityRiskPremium float64 `yaml:"equity_risk_premium"`
	TaxRate           float64 `yaml:"tax_rate"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Dir: ".cache/valuation/runs"},
		Market: MarketDefaults{
			RiskFreeRate:      0.043,
			EquityRiskPremium: 0.055,
			TaxRate:           0.21,
		},
		Assumptions: assumption.DefaultBuildOptions(),
	}
}

// Load reads the YAML file (missing file is fine), then .env, then environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	c.Server.DevMode = getEnvAsBool("DEV_MODE", c.Server.DevMode)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("LOG_PRETTY", c.Log.Pretty)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Store.Dir = getEnv("RUN_STORE_DIR", c.Store.Dir)
}

// Validate checks the settings that would otherwise fail later at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Assumptions.ProjectionYears <= 0 {
		return fmt.Errorf("assumptions.projection_years must be positive")
	}
	if c.Assumptions.MinGrowth > c.Assumptions.MaxGrowth {
		return fmt.Errorf("assumptions.min_growth exceeds max_growth")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
