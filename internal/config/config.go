package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"

	DefaultDatabase      = "seastar.db"
	DefaultSchemaVersion = 8
	DefaultUpcomingDays  = 7
	DefaultLogLevel      = "info"
	DefaultAdminUser     = "admin"
	DefaultAdminPassword = "admin123"
)

type Config struct {
	Database      string      `yaml:"database,omitempty"`
	SchemaVersion int         `yaml:"schema_version,omitempty"`
	UpcomingDays  int         `yaml:"upcoming_days,omitempty"`
	Timezone      string      `yaml:"timezone,omitempty"`
	LogLevel      string      `yaml:"log_level,omitempty"`
	Admin         AdminConfig `yaml:"admin,omitempty"`
}

// AdminConfig holds the credentials seeded into a new database. Only the
// hash ends up in the database.
type AdminConfig struct {
	Username        string `yaml:"username,omitempty"`
	InitialPassword string `yaml:"initial_password,omitempty"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.SchemaVersion == 0 {
		c.SchemaVersion = DefaultSchemaVersion
	}
	if c.UpcomingDays == 0 {
		c.UpcomingDays = DefaultUpcomingDays
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Admin.Username == "" {
		c.Admin.Username = DefaultAdminUser
	}
	if c.Admin.InitialPassword == "" {
		c.Admin.InitialPassword = DefaultAdminPassword
	}
}

func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(dataDir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dataDir, FileName)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.SchemaVersion < 1 {
		return fmt.Errorf("schema_version must be positive, got %d", c.SchemaVersion)
	}
	if c.UpcomingDays < 0 {
		return fmt.Errorf("upcoming_days must not be negative, got %d", c.UpcomingDays)
	}
	if filepath.Base(c.Database) != c.Database {
		return fmt.Errorf("database must be a file name, got %q", c.Database)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// DatabasePath is the database file inside dataDir.
func (c *Config) DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, c.Database)
}

// Location resolves the timezone used for "today". Empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
