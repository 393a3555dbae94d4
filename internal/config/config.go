// Package config consolidates every pipeline tunable into one structure.
// Historical iterations of the model scattered near-duplicate constants
// across stage files (vol scale 10 vs 15, home advantage 2.0 vs 4.5); a
// single config passed into each stage is how that drift stays impossible.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalnoise/nbasignal/internal/domain/archetype"
	"github.com/signalnoise/nbasignal/internal/domain/consistency"
	"github.com/signalnoise/nbasignal/internal/domain/expectation"
	"github.com/signalnoise/nbasignal/internal/domain/fatigue"
	"github.com/signalnoise/nbasignal/internal/domain/momentum"
	"github.com/signalnoise/nbasignal/internal/domain/pve"
)

// Config is the full pipeline configuration.
type Config struct {
	Fatigue     fatigue.Config               `yaml:"fatigue"`
	Expectation expectation.Config           `yaml:"expectation"`
	PvE         pve.Config                   `yaml:"pve"`
	Momentum    momentum.Config              `yaml:"momentum"`
	Consistency consistency.Config           `yaml:"consistency"`
	Archetype   archetype.Config             `yaml:"archetype"`
	Environment archetype.EnvironmentConfig  `yaml:"environment"`
	Ingest      IngestConfig                 `yaml:"ingest"`
	Store       StoreConfig                  `yaml:"store"`
}

// IngestConfig configures the games API client.
type IngestConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	PerPage        int     `yaml:"per_page"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	MaxRetries     int     `yaml:"max_retries"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// StoreConfig configures table persistence.
type StoreConfig struct {
	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`

	// SummaryTTLDays bounds how long a cached board summary stays fresh.
	SummaryTTLDays int `yaml:"summary_ttl_days"`
}

// Default returns the built-in reference configuration.
func Default() Config {
	return Config{
		Fatigue:     fatigue.DefaultConfig(),
		Expectation: expectation.DefaultConfig(),
		PvE:         pve.DefaultConfig(),
		Momentum:    momentum.DefaultConfig(),
		Consistency: consistency.DefaultConfig(),
		Archetype:   archetype.DefaultConfig(),
		Environment: archetype.DefaultEnvironmentConfig(),
		Ingest: IngestConfig{
			BaseURL:        "https://api.balldontlie.io/v1/games",
			APIKeyEnv:      "BALLDONTLIE_API_KEY",
			PerPage:        100,
			RequestsPerSec: 5,
			MaxRetries:     3,
			TimeoutSeconds: 30,
		},
		Store: StoreConfig{
			DataDir:        "data",
			SummaryTTLDays: 3,
		},
	}
}

// Load reads a YAML config file over the defaults, so a partial file only
// overrides what it names.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every stage section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"fatigue", c.Fatigue.Validate()},
		{"expectation", c.Expectation.Validate()},
		{"pve", c.PvE.Validate()},
		{"momentum", c.Momentum.Validate()},
		{"consistency", c.Consistency.Validate()},
		{"archetype", c.Archetype.Validate()},
		{"environment", c.Environment.Validate()},
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.name, ch.err)
		}
	}
	if c.Ingest.PerPage < 1 || c.Ingest.PerPage > 100 {
		return fmt.Errorf("ingest: per_page %d out of [1,100]", c.Ingest.PerPage)
	}
	if c.Ingest.RequestsPerSec <= 0 {
		return fmt.Errorf("ingest: requests_per_sec must be positive")
	}
	return nil
}
