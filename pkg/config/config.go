package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for scanbench-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (the database password) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8470"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL schema library)
	Database DatabaseConfig `yaml:"database"`

	// Matching configuration
	Matching MatchingConfig `yaml:"matching"`

	// MigrationsPath is where golang-migrate looks for SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"scanbench"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"scanbench_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL builds a postgres connection URL from the parts.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// MatchingConfig holds assisted-matching settings.
type MatchingConfig struct {
	// MinScore is the threshold below which a pair is never suggested.
	MinScore int `yaml:"min_score" env:"MATCHING_MIN_SCORE" env-default:"30"`
	// ComparatorConcurrency bounds how many comparator calls a scoring
	// pass runs at once. 1 serializes them.
	ComparatorConcurrency int `yaml:"comparator_concurrency" env:"MATCHING_COMPARATOR_CONCURRENCY" env-default:"4"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, configuration comes from
// environment variables and defaults alone. The version parameter is
// injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 100 {
		return fmt.Errorf("matching.min_score must be between 0 and 100, got %d", c.Matching.MinScore)
	}
	if c.Matching.ComparatorConcurrency < 1 {
		return fmt.Errorf("matching.comparator_concurrency must be at least 1, got %d", c.Matching.ComparatorConcurrency)
	}
	return nil
}
