package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime options for the ingestion daemon. Exactly one
// backend selector (DataPath or DynamoDBTable) must be set.
type Config struct {
	DataPath          string `mapstructure:"data_path"`
	DynamoDBTable     string `mapstructure:"dynamodb_table"`
	DynamoDBRegion    string `mapstructure:"dynamodb_region"`
	UpdateInterval    int    `mapstructure:"update_interval"`
	DefaultResampling string `mapstructure:"default_resampling"`
	ListenAddr        string `mapstructure:"listen_addr"`
}

// Load reads configuration from the given TOML file (or ./config.toml when
// path is empty), with LOCNESS_* environment variables taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LOCNESS")
	v.AutomaticEnv()

	v.SetDefault("update_interval", 10)
	v.SetDefault("default_resampling", "10s")
	v.SetDefault("listen_addr", ":8050")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			// No config file; env vars and defaults still apply.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration selects exactly one backend and
// that intervals are usable. A failure here is fatal at startup.
func (c *Config) Validate() error {
	if c.DataPath == "" && c.DynamoDBTable == "" {
		return fmt.Errorf("no backend configured: set one of data_path or dynamodb_table")
	}
	if c.DataPath != "" && c.DynamoDBTable != "" {
		return fmt.Errorf("conflicting backends: data_path and dynamodb_table are mutually exclusive")
	}
	if c.DynamoDBTable != "" && c.DynamoDBRegion == "" {
		return fmt.Errorf("dynamodb_table requires dynamodb_region")
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be a positive number of seconds, got %d", c.UpdateInterval)
	}
	if _, err := time.ParseDuration(c.DefaultResampling); err != nil {
		return fmt.Errorf("invalid default_resampling %q: %w", c.DefaultResampling, err)
	}
	return nil
}

// UpdateIntervalDuration returns the refresh period as a time.Duration.
func (c *Config) UpdateIntervalDuration() time.Duration {
	return time.Duration(c.UpdateInterval) * time.Second
}

// Resampling returns the default resample interval. Validate must have
// passed for the result to be meaningful.
func (c *Config) Resampling() time.Duration {
	d, err := time.ParseDuration(c.DefaultResampling)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
