package config

import (
	"fmt"
	"os"

	"orderbook-observer/src/helpers"
	"orderbook-observer/src/models"

	"gopkg.in/yaml.v3"
)

// Defaults applied to unset fields before validation.
const (
	DefaultBookDepth         = 10
	DefaultHistoryCapacity   = 500
	DefaultPingInterval      = 15
	DefaultReconnectDelay    = 1
	DefaultMaxReconnectDelay = 30
	DefaultWriteTimeout      = 5
	DefaultFeedURL           = "wss://ws.kraken.com/v2"
	DefaultRestURL           = "https://api.kraken.com/0/public/AssetPairs"
	DefaultRequestTimeout    = 10
	DefaultRecorderBatchSize = 100
	DefaultRecorderFlushMs   = 500
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from raw YAML
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills unset optional fields
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.PingIntervalSeconds == 0 {
		c.Feed.PingIntervalSeconds = DefaultPingInterval
	}
	if c.Feed.ReconnectDelaySeconds == 0 {
		c.Feed.ReconnectDelaySeconds = DefaultReconnectDelay
	}
	if c.Feed.MaxReconnectDelaySeconds == 0 {
		c.Feed.MaxReconnectDelaySeconds = DefaultMaxReconnectDelay
	}
	if c.Feed.WriteTimeoutSeconds == 0 {
		c.Feed.WriteTimeoutSeconds = DefaultWriteTimeout
	}
	if c.Feed.RestURL == "" {
		c.Feed.RestURL = DefaultRestURL
	}
	if c.Feed.RequestTimeoutSeconds == 0 {
		c.Feed.RequestTimeoutSeconds = DefaultRequestTimeout
	}
	if c.Book.Depth == 0 {
		c.Book.Depth = DefaultBookDepth
	}
	if c.Book.HistoryCapacity == 0 {
		c.Book.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "none"
	}
	if c.Storage.BatchSize == 0 {
		c.Storage.BatchSize = DefaultRecorderBatchSize
	}
	if c.Storage.FlushIntervalMs == 0 {
		c.Storage.FlushIntervalMs = DefaultRecorderFlushMs
	}
	if c.DefaultSymbol == "" && len(c.Tokens) > 0 {
		c.DefaultSymbol = c.Tokens[0].Symbol
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return invalid("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return invalid("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return invalid(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port))
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return invalid(fmt.Sprintf("invalid grpc port number: %d", c.GrpcPort))
	}

	// Validate Feed configuration
	if c.Feed.PingIntervalSeconds < 0 {
		return invalid("ping interval cannot be negative")
	}
	if c.Feed.ReconnectDelaySeconds < 0 || c.Feed.MaxReconnectDelaySeconds < c.Feed.ReconnectDelaySeconds {
		return invalid("reconnect delays must satisfy 0 <= reconnect_delay <= max_reconnect_delay")
	}

	if c.Feed.MaxRetries < 0 {
		return invalid("max retries cannot be negative")
	}

	// Validate Book configuration
	if c.Book.Depth <= 0 {
		return invalid("book depth must be greater than 0")
	}
	if c.Book.HistoryCapacity <= 0 {
		return invalid("history capacity must be greater than 0")
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return invalid("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return invalid("connection string cannot be empty for postgres")
		}
	default:
		return invalid(fmt.Sprintf("unsupported database type: %s", c.Storage.DBType))
	}

	// Validate Tokens
	if len(c.Tokens) == 0 {
		return invalid("at least one token must be configured")
	}
	seen := make(map[string]struct{}, len(c.Tokens))
	for i, t := range c.Tokens {
		if t.Symbol == "" {
			return invalid(fmt.Sprintf("token %d must have a symbol", i))
		}
		if _, dup := seen[t.Symbol]; dup {
			return invalid(fmt.Sprintf("token '%s' configured twice", t.Symbol))
		}
		seen[t.Symbol] = struct{}{}
		if t.PairDecimals < 0 || t.LotDecimals < 0 {
			return invalid(fmt.Sprintf("token '%s' decimals cannot be negative", t.Symbol))
		}
	}
	if _, ok := c.Token(c.DefaultSymbol); !ok {
		return invalid(fmt.Sprintf("default symbol '%s' is not a configured token", c.DefaultSymbol))
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func invalid(msg string) error {
	return &helpers.ConfigurationError{ObserverError: helpers.ObserverError{Message: msg}}
}
