// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// stores.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxConns     int    `mapstructure:"max_conns"`
	MinConns     int    `mapstructure:"min_conns"`
	ConnLifetime int    `mapstructure:"conn_lifetime_seconds"`
}

// SecretsConfig controls credential encryption.
type SecretsConfig struct {
	Passphrase string `mapstructure:"passphrase"`
}

// ScrapeConfig governs the scraping engine.
type ScrapeConfig struct {
	ChunkSize               int `mapstructure:"chunk_size"`
	ChunkDelaySeconds       int `mapstructure:"chunk_delay_seconds"`
	DomainRequestsPerWindow int `mapstructure:"domain_requests_per_window"`
	DomainWindowSeconds     int `mapstructure:"domain_window_seconds"`
	FetchTimeoutSeconds     int `mapstructure:"fetch_timeout_seconds"`
	MaxAttempts             int `mapstructure:"max_attempts"`
	BackoffSeconds          int `mapstructure:"backoff_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_seconds", 1800)
	v.SetDefault("scrape.chunk_size", 5)
	v.SetDefault("scrape.chunk_delay_seconds", 2)
	v.SetDefault("scrape.domain_requests_per_window", 60)
	v.SetDefault("scrape.domain_window_seconds", 60)
	v.SetDefault("scrape.fetch_timeout_seconds", 10)
	v.SetDefault("scrape.max_attempts", 3)
	v.SetDefault("scrape.backoff_seconds", 1)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.ChunkSize <= 0 {
		return fmt.Errorf("scrape.chunk_size must be > 0")
	}
	if c.Scrape.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.fetch_timeout_seconds must be > 0")
	}
	if c.Scrape.MaxAttempts <= 0 {
		return fmt.Errorf("scrape.max_attempts must be > 0")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scrape.FetchTimeoutSeconds) * time.Second
}

// ChunkDelay converts the inter-chunk pacing delay into a duration.
func (c Config) ChunkDelay() time.Duration {
	return time.Duration(c.Scrape.ChunkDelaySeconds) * time.Second
}

// DomainWindow converts the rate-limit window into a duration.
func (c Config) DomainWindow() time.Duration {
	return time.Duration(c.Scrape.DomainWindowSeconds) * time.Second
}

// BackoffBase converts the retry backoff base into a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Scrape.BackoffSeconds) * time.Second
}

// ConnLifetime converts the database connection lifetime into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetime) * time.Second
}
