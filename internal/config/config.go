// Package config loads taskboard settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingSecret is returned by ValidateServer when no JWT secret is set.
var ErrMissingSecret = errors.New("jwt secret is required (set TASKBOARD_JWT_SECRET or server.jwt_secret)")

// Config is the full configuration for both the server and the client.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures `taskboard serve`.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	DBPath       string        `yaml:"db_path"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TaskOrdering *bool         `yaml:"task_ordering"`
	AccessTTL    time.Duration `yaml:"access_ttl"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl"`
}

// ClientConfig configures the client commands.
type ClientConfig struct {
	ServerURL       string `yaml:"server_url"`
	CredentialsPath string `yaml:"credentials_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// TaskOrderingEnabled reports whether the server persists task order.
func (s ServerConfig) TaskOrderingEnabled() bool {
	return s.TaskOrdering == nil || *s.TaskOrdering
}

// Load reads the config file at path, or the default path when path is
// empty. A missing file yields the defaults. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			cfg := Default()
			cfg.applyEnv()
			return cfg, nil
		}
		path = p
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// ValidateServer checks the settings `serve` cannot run without.
func (c *Config) ValidateServer() error {
	if c.Server.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.Server.AccessTTL <= 0 || c.Server.RefreshTTL < c.Server.AccessTTL {
		return fmt.Errorf("invalid token lifetimes: access %s, refresh %s", c.Server.AccessTTL, c.Server.RefreshTTL)
	}
	return nil
}

// DefaultPath returns $XDG_CONFIG_HOME/taskboard/config.yaml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "taskboard"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "taskboard"), nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "./data/taskboard.db"
	}
	if c.Server.AccessTTL == 0 {
		c.Server.AccessTTL = 15 * time.Minute
	}
	if c.Server.RefreshTTL == 0 {
		c.Server.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "http://localhost:8080"
	}
	if c.Client.CredentialsPath == "" {
		if dir, err := configDir(); err == nil {
			c.Client.CredentialsPath = filepath.Join(dir, "credentials.yaml")
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("TASKBOARD_ADDR", c.Server.Addr)
	c.Server.DBPath = getEnv("TASKBOARD_DB_PATH", c.Server.DBPath)
	c.Server.JWTSecret = getEnv("TASKBOARD_JWT_SECRET", c.Server.JWTSecret)
	c.Client.ServerURL = getEnv("TASKBOARD_SERVER_URL", c.Client.ServerURL)
	c.Log.Level = getEnv("TASKBOARD_LOG_LEVEL", c.Log.Level)

	if v, err := strconv.ParseBool(os.Getenv("TASKBOARD_TASK_ORDERING")); err == nil {
		c.Server.TaskOrdering = &v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
