// Package util provides configuration and common helpers for linkalert.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// SourceConfig describes the monitoring backend to poll.
type SourceConfig struct {
	Name     string        `mapstructure:"name"`
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Passhash string        `mapstructure:"passhash"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// HealthConfig controls the source health monitor.
type HealthConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	AlertCooldown    time.Duration `mapstructure:"alert_cooldown"`
	Channels         []string      `mapstructure:"channels"`
	Recipients       []string      `mapstructure:"recipients"`
}

// ChannelsConfig holds per-channel transport settings.
type ChannelsConfig struct {
	SendGridAPIKey  string   `mapstructure:"sendgrid_api_key"`
	EmailFrom       string   `mapstructure:"email_from"`
	SlackWebhookURL string   `mapstructure:"slack_webhook_url"`
	TelegramToken   string   `mapstructure:"telegram_token"`
	KafkaBrokers    []string `mapstructure:"kafka_brokers"`
	KafkaTopic      string   `mapstructure:"kafka_topic"`
}

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`

	// Poll cycle
	PollInterval time.Duration `mapstructure:"poll_interval"`
	WorkerLimit  int           `mapstructure:"worker_limit"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`

	// Engine state
	StateBackend string        `mapstructure:"state_backend"` // memory or sqlite
	StateTTL     time.Duration `mapstructure:"state_ttl"`

	// Persistence
	StorageBackend string `mapstructure:"storage_backend"` // sqlite or postgres
	PostgresDSN    string `mapstructure:"postgres_dsn"`

	Source   SourceConfig   `mapstructure:"source"`
	Health   HealthConfig   `mapstructure:"health"`
	Channels ChannelsConfig `mapstructure:"channels"`

	// Introspection API
	APIPort int `mapstructure:"api_port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".linkalert")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",

		PollInterval: 5 * time.Minute,
		WorkerLimit:  4,
		SendTimeout:  10 * time.Second,

		StateBackend: "memory",
		StateTTL:     time.Hour,

		StorageBackend: "sqlite",

		Source: SourceConfig{
			Name:    "default",
			Timeout: 15 * time.Second,
		},

		Health: HealthConfig{
			FailureThreshold: 1,
			AlertCooldown:    30 * time.Minute,
		},

		APIPort: 8080,
	}
}

// LoadConfig loads configuration from file and environment. An explicit
// path overrides the default search locations.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(cfg.DataDir)
		viper.AddConfigPath(".")
	}

	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("poll_interval", cfg.PollInterval)
	viper.SetDefault("worker_limit", cfg.WorkerLimit)
	viper.SetDefault("send_timeout", cfg.SendTimeout)
	viper.SetDefault("state_backend", cfg.StateBackend)
	viper.SetDefault("state_ttl", cfg.StateTTL)
	viper.SetDefault("storage_backend", cfg.StorageBackend)
	viper.SetDefault("source.name", cfg.Source.Name)
	viper.SetDefault("source.timeout", cfg.Source.Timeout)
	viper.SetDefault("health.failure_threshold", cfg.Health.FailureThreshold)
	viper.SetDefault("health.alert_cooldown", cfg.Health.AlertCooldown)
	viper.SetDefault("api_port", cfg.APIPort)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks settings that must be present before the engine can start.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.WorkerLimit <= 0 {
		return fmt.Errorf("worker_limit must be positive")
	}
	switch c.StateBackend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown state_backend %q", c.StateBackend)
	}
	switch c.StorageBackend {
	case "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage_backend %q", c.StorageBackend)
	}
	return nil
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
