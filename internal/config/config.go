// Package config loads the bot configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OmkarNiphade/todo-bot/internal/scheduler"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvTelegramToken = "TODOBOT_TELEGRAM_TOKEN"
	EnvDBPath        = "TODOBOT_DB_PATH"
)

// Config holds the bot configuration.
type Config struct {
	Telegram  TelegramConfig    `yaml:"telegram"`
	Database  DatabaseConfig    `yaml:"database"`
	Scheduler *scheduler.Config `yaml:"scheduler"`
	Server    ServerConfig      `yaml:"server"`
	Log       LogConfig         `yaml:"log"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	// Token is the bot token issued by BotFather.
	Token string `yaml:"token"`
	// Workers bounds how many users are served in parallel.
	Workers int `yaml:"workers"`
}

// DatabaseConfig configures the task store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the admin HTTP API. An empty Listen disables it.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration that works without a file, apart
// from the bot token.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Workers: 8,
		},
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
		Scheduler: scheduler.DefaultConfig(),
		Server: ServerConfig{
			Listen: "127.0.0.1:7480",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".todobot")
}

func defaultDBPath() string {
	return filepath.Join(homeDir(), "tasks.db")
}

// DefaultPath returns ~/.todobot/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults. Environment overrides are applied before validation.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		c.Database.Path = v
	}
}

// Validate checks that the configuration is usable. The bot token is only
// required by commands that talk to Telegram; see RequireToken.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Telegram.Workers < 1 {
		return fmt.Errorf("telegram.workers must be at least 1")
	}
	if c.Scheduler == nil {
		c.Scheduler = scheduler.DefaultConfig()
	}
	if c.Scheduler.ResyncInterval < 0 {
		return fmt.Errorf("scheduler.resync_interval must not be negative")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// RequireToken reports an error when no bot token is configured.
func (c *Config) RequireToken() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token missing: set telegram.token or %s", EnvTelegramToken)
	}
	return nil
}

// Save writes the configuration to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
