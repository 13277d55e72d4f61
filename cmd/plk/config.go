package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opd-ai/passlok/session"
	"github.com/opd-ai/passlok/stego"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the plk configuration file.
type Config struct {
	Email          string        `yaml:"email"`
	StorePath      string        `yaml:"store_path"`
	Host           string        `yaml:"host"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	JPEGQuality    int           `yaml:"jpeg_quality"`
	// ArmorLock prepends our Lock to armored messages where allowed.
	ArmorLock *bool `yaml:"armor_lock"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() Config {
	return Config{
		StorePath:      defaultStorePath(),
		Host:           "passlok",
		LogLevel:       "WARN",
		LogFormat:      "text",
		SessionTimeout: session.DefaultTimeout,
		JPEGQuality:    stego.DefaultQuality,
	}
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "passlok")
}

func defaultStorePath() string { return filepath.Join(configDir(), "passlok.db") }

// DefaultConfigPath is where LoadConfig looks when no path is given.
func DefaultConfigPath() string { return filepath.Join(configDir(), "config.yaml") }

// LoadConfig reads path over the defaults. A missing file at the default
// location is not an error; a missing file that was asked for is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Merge(parsed)
	return cfg, nil
}

// Merge copies the fields set in src.
func (c *Config) Merge(src Config) {
	if src.Email != "" {
		c.Email = src.Email
	}
	if src.StorePath != "" {
		c.StorePath = src.StorePath
	}
	if src.Host != "" {
		c.Host = src.Host
	}
	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
	}
	if src.LogFormat != "" {
		c.LogFormat = src.LogFormat
	}
	if src.SessionTimeout != 0 {
		c.SessionTimeout = src.SessionTimeout
	}
	if src.MetricsAddr != "" {
		c.MetricsAddr = src.MetricsAddr
	}
	if src.JPEGQuality != 0 {
		c.JPEGQuality = src.JPEGQuality
	}
	if src.ArmorLock != nil {
		v := *src.ArmorLock
		c.ArmorLock = &v
	}
}

// Validate checks the merged configuration.
func (c Config) Validate() error {
	if c.SessionTimeout < 0 {
		return fmt.Errorf("session_timeout must not be negative")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 90 {
		return fmt.Errorf("jpeg_quality must be between 1 and 90, got %d", c.JPEGQuality)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c Config) armorLock() bool {
	return c.ArmorLock != nil && *c.ArmorLock
}

// ensureDir creates the parent directory of a store file.
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	return nil
}

// setupLogging applies the level and format to the standard logger.
func setupLogging(c Config, w io.Writer) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(w)
	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
}
