package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"heredity/internal/heredity"
)

// Config represents the application configuration
type Config struct {
	Environment string            `mapstructure:"environment"`
	Model       ModelConfig       `mapstructure:"model"`
	Inference   InferenceConfig   `mapstructure:"inference"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Server      ServerConfig      `mapstructure:"server"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ModelConfig holds the conditional probability tables. They are read once at
// startup and handed to the engine by value.
type ModelConfig struct {
	GenePrior      GeneTable `mapstructure:"gene_prior"`
	TraitGivenGene GeneTable `mapstructure:"trait_given_gene"`
	MutationRate   float64   `mapstructure:"mutation_rate"`
}

// GeneTable holds one probability per gene count
type GeneTable struct {
	Zero float64 `mapstructure:"zero"`
	One  float64 `mapstructure:"one"`
	Two  float64 `mapstructure:"two"`
}

// InferenceConfig bounds the enumeration work accepted per run
type InferenceConfig struct {
	MaxIndividuals  int `mapstructure:"max_individuals"`
	ShardsPerWorker int `mapstructure:"shards_per_worker"`
}

// ConcurrencyConfig holds concurrency settings
type ConcurrencyConfig struct {
	MaxWorkers         int `mapstructure:"max_workers"`
	MaxInflight        int `mapstructure:"max_inflight"`
	LockTimeoutSeconds int `mapstructure:"lock_timeout_seconds"`
}

// StorageConfig holds storage path configuration
type StorageConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig holds database-specific settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds tracing settings. An empty endpoint disables export.
type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LoggingConfig holds the run log location
type LoggingConfig struct {
	Dir string `mapstructure:"dir"`
}

func setDefaults(v *viper.Viper) {
	cpt := heredity.DefaultCPT()

	v.SetDefault("environment", "development")
	v.SetDefault("model.gene_prior.zero", cpt.Prior[heredity.GeneZero])
	v.SetDefault("model.gene_prior.one", cpt.Prior[heredity.GeneOne])
	v.SetDefault("model.gene_prior.two", cpt.Prior[heredity.GeneTwo])
	v.SetDefault("model.trait_given_gene.zero", cpt.Trait[heredity.GeneZero])
	v.SetDefault("model.trait_given_gene.one", cpt.Trait[heredity.GeneOne])
	v.SetDefault("model.trait_given_gene.two", cpt.Trait[heredity.GeneTwo])
	v.SetDefault("model.mutation_rate", cpt.Mutation)
	v.SetDefault("inference.max_individuals", 12)
	v.SetDefault("inference.shards_per_worker", 4)
	v.SetDefault("concurrency.max_workers", 4)
	v.SetDefault("concurrency.max_inflight", 2)
	v.SetDefault("concurrency.lock_timeout_seconds", 600)
	v.SetDefault("storage.enabled", true)
	v.SetDefault("storage.database.path", filepath.Join("data", "heredity.db"))
	v.SetDefault("server.port", 50055)
	v.SetDefault("telemetry.service_name", "heredity")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("logging.dir", "logs")
}

// Load reads configuration from YAML files and environment variables
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (e.g., HEREDITY_CONCURRENCY_MAX_WORKERS)
//  2. Environment-specific YAML (e.g., config.dev.yaml)
//  3. Base YAML (config.yaml)
//  4. Built-in defaults
//
// A missing base file is not an error: defaults and the environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = filepath.Join("config", "config.yaml")
	}

	v.SetConfigFile(configPath)

	// Read base config
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Load environment-specific overlay
	configDir := filepath.Dir(configPath)
	configExt := filepath.Ext(configPath)
	configBase := strings.TrimSuffix(filepath.Base(configPath), configExt)

	env := os.Getenv("HEREDITY_ENV")
	if env == "" {
		env = v.GetString("environment")
	}

	envConfigPath := filepath.Join(configDir, fmt.Sprintf("%s.%s%s", configBase, env, configExt))
	if _, err := os.Stat(envConfigPath); err == nil {
		v.SetConfigFile(envConfigPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to merge environment config: %w", err)
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("HEREDITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("concurrency.max_workers", "HEREDITY_CONCURRENCY_MAX_WORKERS")
	v.BindEnv("storage.database.path", "HEREDITY_DB_PATH")
	v.BindEnv("telemetry.otlp_endpoint", "HEREDITY_OTLP_ENDPOINT")
	v.BindEnv("model.mutation_rate", "HEREDITY_MODEL_MUTATION_RATE")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks required configuration fields
func validate(cfg *Config) error {
	if err := cfg.CPT().Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}

	if cfg.Inference.MaxIndividuals <= 0 || cfg.Inference.MaxIndividuals > heredity.MaxPopulation {
		return fmt.Errorf("inference.max_individuals must be between 1 and %d", heredity.MaxPopulation)
	}
	if cfg.Inference.ShardsPerWorker <= 0 {
		return fmt.Errorf("inference.shards_per_worker must be greater than 0")
	}

	if cfg.Concurrency.MaxWorkers <= 0 {
		return fmt.Errorf("concurrency.max_workers must be greater than 0")
	}
	if cfg.Concurrency.MaxInflight <= 0 {
		return fmt.Errorf("concurrency.max_inflight must be greater than 0")
	}
	if cfg.Concurrency.LockTimeoutSeconds <= 0 {
		return fmt.Errorf("concurrency.lock_timeout_seconds must be greater than 0")
	}

	if cfg.Storage.Enabled && cfg.Storage.Database.Path == "" {
		return fmt.Errorf("storage.database.path is required when storage is enabled")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port")
	}

	return nil
}

// CPT builds the engine tables from the model section
func (c *Config) CPT() heredity.CPT {
	m := c.Model
	return heredity.CPT{
		Prior:    [3]float64{m.GenePrior.Zero, m.GenePrior.One, m.GenePrior.Two},
		Trait:    [3]float64{m.TraitGivenGene.Zero, m.TraitGivenGene.One, m.TraitGivenGene.Two},
		Mutation: m.MutationRate,
	}
}
