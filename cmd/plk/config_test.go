package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
email: alice@example.com
store_path: /tmp/plk.db
session_timeout: 10m
jpeg_quality: 70
armor_lock: true
log_format: json
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", cfg.Email)
	assert.Equal(t, "/tmp/plk.db", cfg.StorePath)
	assert.Equal(t, 10*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 70, cfg.JPEGQuality)
	assert.True(t, cfg.armorLock())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "passlok", cfg.Host, "unset fields keep their defaults")
	assert.Equal(t, "WARN", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "a file that was asked for must exist")

	require.NoError(t, os.WriteFile(path, []byte("email: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigMerge(t *testing.T) {
	cfg := DefaultConfig()
	off := false
	cfg.Merge(Config{Host: "example.com", JPEGQuality: 60, ArmorLock: &off})
	assert.Equal(t, "example.com", cfg.Host)
	assert.Equal(t, 60, cfg.JPEGQuality)
	assert.False(t, cfg.armorLock())

	off = true
	assert.False(t, cfg.armorLock(), "merge copies the flag value")

	before := cfg
	cfg.Merge(Config{})
	assert.Equal(t, before, cfg)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"negative timeout", func(c *Config) { c.SessionTimeout = -time.Second }, false},
		{"quality too high", func(c *Config) { c.JPEGQuality = 95 }, false},
		{"quality zero", func(c *Config) { c.JPEGQuality = 0 }, false},
		{"bad level", func(c *Config) { c.LogLevel = "LOUD" }, false},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, false},
		{"json format", func(c *Config) { c.LogFormat = "JSON" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	defer func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
		logrus.SetFormatter(&logrus.TextFormatter{})
	}()

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogLevel = "DEBUG"
	cfg.LogFormat = "json"
	setupLogging(cfg, &buf)

	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	logrus.WithField("function", "TestSetupLogging").Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
