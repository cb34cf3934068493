package config

import (
	"os"
	"strconv"

	"grainmeta/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Simulation SimulationConfig
	Database   DatabaseConfig
	Export     ExportConfig
}

// SimulationConfig holds the batch defaults used when the CLI flags leave a
// value unset.
type SimulationConfig struct {
	Studies  int
	Seed     int64
	GrainMin float64
	GrainMax float64

	Quadrats  int
	Placement string

	PoolSize             int
	Individuals          int
	Shape                float64
	TreatmentPoolSize    int
	TreatmentIndividuals int

	RarefactionTarget int
	Concurrency       int
}

// DatabaseConfig holds optional PostgreSQL connection settings. An empty URL
// means results are kept in memory only.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ExportConfig holds export output settings
type ExportConfig struct {
	Directory string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Simulation: loadSimulationConfig(),
		Database:   loadDatabaseConfig(),
		Export:     loadExportConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadSimulationConfig() SimulationConfig {
	poolSize := getEnvIntOrDefault("POOL_SIZE", 100)
	individuals := getEnvIntOrDefault("INDIVIDUALS", 1000)

	return SimulationConfig{
		Studies:  getEnvIntOrDefault("STUDIES", 10),
		Seed:     int64(getEnvIntOrDefault("SEED", 42)),
		GrainMin: getEnvFloatOrDefault("GRAIN_MIN", 0.01),
		GrainMax: getEnvFloatOrDefault("GRAIN_MAX", 0.09),

		Quadrats:  getEnvIntOrDefault("QUADRATS", 5),
		Placement: getEnvOrDefault("PLACEMENT", "random"),

		PoolSize:             poolSize,
		Individuals:          individuals,
		Shape:                getEnvFloatOrDefault("SHAPE", 1.0),
		TreatmentPoolSize:    getEnvIntOrDefault("TREATMENT_POOL_SIZE", poolSize/2),
		TreatmentIndividuals: getEnvIntOrDefault("TREATMENT_INDIVIDUALS", individuals),

		RarefactionTarget: getEnvIntOrDefault("RAREFACTION_TARGET", 0),
		Concurrency:       getEnvIntOrDefault("CONCURRENCY", 4),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadExportConfig() ExportConfig {
	return ExportConfig{
		Directory: getEnvOrDefault("EXPORT_DIR", "."),
	}
}

func validateConfig(config *Config) error {
	sim := config.Simulation
	if sim.Studies <= 0 {
		return errors.ConfigInvalid("STUDIES must be positive")
	}
	if sim.GrainMin <= 0 || sim.GrainMax <= 0 || sim.GrainMin > sim.GrainMax {
		return errors.ConfigInvalid("GRAIN_MIN/GRAIN_MAX must be a positive range")
	}
	if sim.Quadrats <= 0 {
		return errors.ConfigInvalid("QUADRATS must be positive")
	}
	if sim.Placement != "random" && sim.Placement != "grid" {
		return errors.ConfigInvalid("PLACEMENT must be random or grid")
	}
	if sim.PoolSize <= 0 || sim.TreatmentPoolSize <= 0 {
		return errors.ConfigInvalid("pool sizes must be positive")
	}
	if sim.Individuals <= 0 || sim.TreatmentIndividuals <= 0 {
		return errors.ConfigInvalid("individual counts must be positive")
	}
	if sim.Shape <= 0 {
		return errors.ConfigInvalid("SHAPE must be positive")
	}
	if sim.Concurrency < 0 {
		return errors.ConfigInvalid("CONCURRENCY cannot be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
