// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Store backends for interventions and the activity trail.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config is the process configuration of the retention service.
type Config struct {
	Port              string `env:"PORT" envDefault:"8080"`
	LogMode           string `env:"LOG_MODE" envDefault:"dev"`
	InterventionStore string `env:"INTERVENTION_STORE" envDefault:"memory"`
	DatabaseURL       string `env:"DATABASE_URL" envDefault:"file:retention.db?_pragma=foreign_keys(1)"`
	ScoringPolicyFile string `env:"SCORING_POLICY_FILE"`
	EventBufferSize   int    `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
	AssessmentWorkers int    `env:"ASSESSMENT_WORKERS" envDefault:"8"`
	AssistantTopN     int    `env:"ASSISTANT_TOP_MEMBERS" envDefault:"10"`
	AutoAssess        bool   `env:"AUTO_ASSESS" envDefault:"false"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	switch c.InterventionStore {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("INTERVENTION_STORE must be %q or %q, got %q", StoreMemory, StoreSQLite, c.InterventionStore)
	}
	if c.InterventionStore == StoreSQLite && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the sqlite store")
	}
	if c.EventBufferSize < 1 {
		return fmt.Errorf("EVENT_BUFFER_SIZE must be positive, got %d", c.EventBufferSize)
	}
	if c.AssessmentWorkers < 1 {
		return fmt.Errorf("ASSESSMENT_WORKERS must be positive, got %d", c.AssessmentWorkers)
	}
	if c.AssistantTopN < 1 {
		return fmt.Errorf("ASSISTANT_TOP_MEMBERS must be positive, got %d", c.AssistantTopN)
	}
	return nil
}
