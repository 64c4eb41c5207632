// Package config loads grove's settings from grove.yaml, an optional .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "grove.yaml"

// Remote drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverCouch    = "couch"
	DriverHTTP     = "http"
)

var drivers = []string{DriverNone, DriverMemory, DriverSQLite, DriverPostgres, DriverCouch, DriverHTTP}

type Config struct {
	Local    LocalConfig  `yaml:"local"`
	Remote   RemoteConfig `yaml:"remote"`
	Auth     AuthConfig   `yaml:"auth"`
	Server   ServerConfig `yaml:"server"`
	Timezone string       `yaml:"timezone"`
}

type LocalConfig struct {
	DBPath string `yaml:"db_path"`
}

type RemoteConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"`
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when nothing is configured: a local
// database in the working directory and no remote.
func Default() *Config {
	return &Config{
		Local:    LocalConfig{DBPath: "grove.db"},
		Remote:   RemoteConfig{Driver: DriverNone, Database: "grove"},
		Auth:     AuthConfig{TokenTTL: 30 * 24 * time.Hour},
		Server:   ServerConfig{Addr: ":8080"},
		Timezone: "Local",
	}
}

// Load reads path (skipped when empty), then applies overrides from
// envFile (skipped when empty or missing) and the environment.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		read, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = read
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	if err := applyEnv(cfg, dotenv); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, dotenv map[string]string) error {
	getEnv := func(key, fallback string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		if value := dotenv[key]; value != "" {
			return value
		}
		return fallback
	}

	cfg.Local.DBPath = getEnv("GROVE_DB_PATH", cfg.Local.DBPath)
	cfg.Remote.Driver = getEnv("GROVE_REMOTE_DRIVER", cfg.Remote.Driver)
	cfg.Remote.DSN = getEnv("GROVE_REMOTE_DSN", cfg.Remote.DSN)
	cfg.Remote.Database = getEnv("GROVE_REMOTE_DATABASE", cfg.Remote.Database)
	cfg.Auth.Secret = getEnv("GROVE_AUTH_SECRET", cfg.Auth.Secret)
	cfg.Server.Addr = getEnv("GROVE_SERVER_ADDR", cfg.Server.Addr)
	cfg.Timezone = getEnv("GROVE_TIMEZONE", cfg.Timezone)

	if ttl := getEnv("GROVE_TOKEN_TTL", ""); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid GROVE_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	return nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Local.DBPath) == "" {
		return fmt.Errorf("local db_path is required")
	}

	cfg.Remote.Driver = strings.ToLower(strings.TrimSpace(cfg.Remote.Driver))
	if cfg.Remote.Driver == "" {
		cfg.Remote.Driver = DriverNone
	}
	known := false
	for _, d := range drivers {
		if d == cfg.Remote.Driver {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown remote driver %q (want one of %s)", cfg.Remote.Driver, strings.Join(drivers, ", "))
	}

	switch cfg.Remote.Driver {
	case DriverSQLite, DriverPostgres, DriverCouch, DriverHTTP:
		if strings.TrimSpace(cfg.Remote.DSN) == "" {
			return fmt.Errorf("remote dsn is required for driver %s", cfg.Remote.Driver)
		}
	}
	if cfg.Remote.Driver == DriverCouch && strings.TrimSpace(cfg.Remote.Database) == "" {
		return fmt.Errorf("remote database is required for driver couch")
	}

	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token_ttl must be positive")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the host's zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SyncEnabled reports whether a remote is configured.
func (c *Config) SyncEnabled() bool {
	return c.Remote.Driver != DriverNone
}
