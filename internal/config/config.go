package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigreer/hwsnap/internal/db"
	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/logging"
	"github.com/sigreer/hwsnap/internal/report"
)

type Config struct {
	// Timeout bounds one probe; a detector attempt gets three times as long.
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	// Root relocates pseudo-file reads, e.g. to inspect a mounted image.
	Root              string   `yaml:"root"`
	Categories        []string `yaml:"categories,omitempty"`
	DisabledDetectors []string `yaml:"disabled_detectors,omitempty"`
	Database          string   `yaml:"database"`
	Log               Log      `yaml:"log"`
	Output            Output   `yaml:"output"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Output struct {
	Format string `yaml:"format"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	Timeout:     detect.DefaultTimeout,
	Concurrency: detect.DefaultConcurrency,
	Root:        "/",
	Database:    db.DefaultPath,
	Log:         Log{Level: "warn", Format: "console"},
	Output:      Output{Format: "table"},
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// candidates are searched in order when no path is given
func candidates() []string {
	paths := []string{"/etc/hwsnap/config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config/hwsnap/config.yaml"))
	}
	return append(paths, "config.yaml")
}

// Load reads the config at path, or the first default location that
// exists. No file at all means defaults; an explicit path that cannot be
// read is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, c := range candidates() {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		cfg.Path = path
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills keys a file left empty
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultConfig.Timeout
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConfig.Concurrency
	}
	if c.Root == "" {
		c.Root = defaultConfig.Root
	}
	if c.Database == "" {
		c.Database = defaultConfig.Database
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultConfig.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultConfig.Log.Format
	}
	if c.Output.Format == "" {
		c.Output.Format = defaultConfig.Output.Format
	}
}

// Validate rejects settings the collector cannot honor.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	for _, cat := range c.Categories {
		if !slices.Contains(report.Categories(), strings.ToLower(cat)) {
			errs = append(errs, fmt.Errorf("categories: %w: %q", report.ErrUnknownCategory, cat))
		}
	}
	if len(c.DisabledDetectors) > 0 {
		known := make(map[string]bool)
		descriptors, _ := report.Describe()
		for _, d := range descriptors {
			known[d.Category+"/"+d.Name] = true
		}
		for _, name := range c.DisabledDetectors {
			if !known[strings.ToLower(name)] {
				errs = append(errs, fmt.Errorf("disabled_detectors: unknown detector %q (want <category>/<name>)", name))
			}
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (valid: console, json)", c.Log.Format))
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("output.format: %w", err))
	}
	return errors.Join(errs...)
}

// Env builds the detection environment for the live host under Root.
func (c *Config) Env() detect.Env {
	env := detect.HostEnv(c.Root)
	env.Timeout = c.Timeout
	env.Concurrency = c.Concurrency
	if len(c.DisabledDetectors) > 0 {
		env.Disabled = make(map[string]bool, len(c.DisabledDetectors))
		for _, name := range c.DisabledDetectors {
			env.Disabled[strings.ToLower(name)] = true
		}
	}
	return env
}
