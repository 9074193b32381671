package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/db"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/report"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
timeout: 30s
concurrency: 2
root: /mnt/image
categories: [storage, memory]
disabled_detectors:
  - storage/smartctl
  - network/ghw
database: /tmp/hwsnap.db
log:
  level: debug
  format: json
output:
  format: yaml
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "/mnt/image", cfg.Root)
	assert.Equal(t, []string{"storage", "memory"}, cfg.Categories)
	assert.Equal(t, "/tmp/hwsnap.db", cfg.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "yaml", cfg.Output.Format)

	env := cfg.Env()
	assert.Equal(t, "/mnt/image", env.Root)
	assert.Equal(t, 30*time.Second, env.Timeout)
	assert.Equal(t, map[string]bool{"storage/smartctl": true, "network/ghw": true}, env.Disabled)
}

func TestLoadPartialFileGetsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "concurrency: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, detect.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "/", cfg.Root)
	assert.Equal(t, db.DefaultPath, cfg.Database)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.Nil(t, cfg.Env().Disabled)
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	if _, err := os.Stat("/etc/hwsnap/config.yaml"); err == nil {
		t.Skip("host has a system-wide config")
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFindsHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	if _, err := os.Stat("/etc/hwsnap/config.yaml"); err == nil {
		t.Skip("host has a system-wide config")
	}
	path := filepath.Join(home, ".config/hwsnap/config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("root: /srv/root\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "/srv/root", cfg.Root)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "timeout: [1, 2\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "timeout: soon\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout must not be negative"},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }, "concurrency"},
		{"unknown category", func(c *Config) { c.Categories = []string{"psu"} }, "psu"},
		{"unknown detector", func(c *Config) { c.DisabledDetectors = []string{"storage/hdparm"} }, "storage/hdparm"},
		{"bare detector name", func(c *Config) { c.DisabledDetectors = []string{"smartctl"} }, "smartctl"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"output format", func(c *Config) { c.Output.Format = "csv" }, "output.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidateAcceptsEveryDeclaredDetector(t *testing.T) {
	descriptors, err := report.Describe()
	require.NoError(t, err)

	cfg := Default()
	for _, d := range descriptors {
		cfg.DisabledDetectors = append(cfg.DisabledDetectors, d.Category+"/"+d.Name)
	}
	assert.NoError(t, cfg.Validate())
}
