package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bytekv server.
type Config struct {
	// Server settings
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Admission control and eviction
	MaxConnections  int           `mapstructure:"max_connections"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Deployment-layer timeouts. The core imposes none by default (spec §9);
	// these stay at 0 (disabled) unless an operator opts in.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            6379,
		MaxConnections:  10000,
		JanitorInterval: 60 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
		ReadTimeout:     0,
		WriteTimeout:    0,
	}
}

// LoadConfig loads configuration from environment variables, a config file,
// and command line flags (flags take precedence over env, which takes
// precedence over the file, which takes precedence over defaults).
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("bytekv")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/bytekv/")
	viper.AddConfigPath("$HOME/.bytekv")

	viper.SetEnvPrefix("BYTEKV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("host", config.Host)
	viper.SetDefault("port", config.Port)
	viper.SetDefault("max_connections", config.MaxConnections)
	viper.SetDefault("janitor_interval", config.JanitorInterval)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)
	viper.SetDefault("read_timeout", config.ReadTimeout)
	viper.SetDefault("write_timeout", config.WriteTimeout)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK.
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1")
	}

	if c.JanitorInterval <= 0 {
		return fmt.Errorf("janitor_interval must be positive")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// String returns a human-readable representation of the config, logged by
// the server at startup.
func (c *Config) String() string {
	return fmt.Sprintf("bytekv Config: %s:%d, MaxConnections: %d, JanitorInterval: %v, LogLevel: %s",
		c.Host, c.Port, c.MaxConnections, c.JanitorInterval, c.LogLevel)
}
