// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the entity store service.
type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
	EnableCORS      bool          `mapstructure:"enable_cors"`
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
}

// StoreConfig controls provider behavior shared by all namespaces.
type StoreConfig struct {
	DefaultNamespace string `mapstructure:"default_namespace" validate:"required"`
	LimiterCapacity  int    `mapstructure:"limiter_capacity" validate:"min=1,max=1024"`
	EventRetention   int    `mapstructure:"event_retention" validate:"min=0"`
}

// EmbeddingConfig controls the embedding backend and its resilience.
type EmbeddingConfig struct {
	Dimensions  int           `mapstructure:"dimensions" validate:"min=1,max=4096"`
	MaxRetries  uint64        `mapstructure:"max_retries" validate:"max=10"`
	BaseBackoff time.Duration `mapstructure:"base_backoff" validate:"min=1ms"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff" validate:"min=1ms"`
}

// Load reads configuration from environment variables prefixed with
// ENTSTORE_ and an optional config file, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ENTSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("entstore")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/entstore")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.enable_metrics", true)

	v.SetDefault("store.default_namespace", "default")
	v.SetDefault("store.limiter_capacity", 64)
	v.SetDefault("store.event_retention", 0)

	v.SetDefault("embedding.dimensions", 64)
	v.SetDefault("embedding.max_retries", 3)
	v.SetDefault("embedding.base_backoff", 100*time.Millisecond)
	v.SetDefault("embedding.max_backoff", 2*time.Second)
}

// Validate checks the configuration for structural and cross-field errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Embedding.MaxBackoff < c.Embedding.BaseBackoff {
		return fmt.Errorf("invalid configuration: embedding.max_backoff %s is below embedding.base_backoff %s",
			c.Embedding.MaxBackoff, c.Embedding.BaseBackoff)
	}
	return nil
}

// IsDevelopment returns true when running in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true when running in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
