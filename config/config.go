// Package config loads server configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the model server.
// Values come from an optional YAML file; environment variables always
// override YAML values. A .env file in the working directory is loaded
// into the environment first when present.
type Config struct {
	Port   int    `yaml:"port" env:"PORT" env-default:"8080"`
	DBPath string `yaml:"db_path" env:"DB_PATH" env-default:"models.db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	// Env selects the logger flavor: "production" gets JSON output.
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"development"`

	// CatalogPath points at a template catalog YAML. Empty uses the
	// built-in catalog.
	CatalogPath string `yaml:"catalog_path" env:"CATALOG_PATH" env-default:""`

	// AllowedOriginsStr is a comma-separated CORS origin list.
	AllowedOriginsStr string   `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://localhost:8080"`
	AllowedOrigins    []string `yaml:"-"`

	// BalanceTolerance is the absolute tolerance of the audit identity checks.
	BalanceTolerance float64 `yaml:"balance_tolerance" env:"BALANCE_TOLERANCE" env-default:"0.01"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads path (when non-empty) with environment overrides, or the
// environment alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.AllowedOrigins = parseList(cfg.AllowedOriginsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Production reports whether the production logger should be used.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.BalanceTolerance <= 0 {
		return fmt.Errorf("balance_tolerance must be positive, got %g", c.BalanceTolerance)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
