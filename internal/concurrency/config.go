package concurrency

import (
	"time"

	"heredity/internal/config"
)

// Config holds concurrency-related configuration.
type Config struct {
	MaxWorkers      int
	MaxInflight     int
	ShardsPerWorker int
	LockTimeout     time.Duration
}

// NewConfig creates a concurrency config from the main configuration.
func NewConfig(cfg *config.Config) *Config {
	return &Config{
		MaxWorkers:      cfg.Concurrency.MaxWorkers,
		MaxInflight:     cfg.Concurrency.MaxInflight,
		ShardsPerWorker: cfg.Inference.ShardsPerWorker,
		LockTimeout:     time.Duration(cfg.Concurrency.LockTimeoutSeconds) * time.Second,
	}
}

// DefaultConfig returns the settings used when no configuration was loaded.
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:      4,
		MaxInflight:     2,
		ShardsPerWorker: 4,
		LockTimeout:     10 * time.Minute,
	}
}
