// Package config loads the esteira configuration from YAML with environment
// overrides for credentials and connection endpoints.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all esteira configuration.
type Config struct {
	// Portal connection and credentials
	Portal PortalConfig `yaml:"portal"`

	// Browser lifecycle settings
	Browser BrowserConfig `yaml:"browser"`

	// Lookup pacing and waits
	Lookup LookupConfig `yaml:"lookup"`

	// Batch execution settings
	Batch BatchConfig `yaml:"batch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PortalConfig configures the proposals portal endpoint and login.
type PortalConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BrowserConfig configures the Chrome instance.
type BrowserConfig struct {
	// DebuggerURL attaches to a running Chrome instead of launching one.
	DebuggerURL       string   `yaml:"debugger_url"`
	Bin               string   `yaml:"bin"`
	Flags             []string `yaml:"flags"`
	Headless          bool     `yaml:"headless"`
	ViewportWidth     int      `yaml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height"`
	NavigationTimeout string   `yaml:"navigation_timeout"`
}

// LookupConfig bounds the per-contract lookup waits.
type LookupConfig struct {
	DefaultTimeout     string `yaml:"default_timeout"`
	HistoryWaitTimeout string `yaml:"history_wait_timeout"`
	SettleDelay        string `yaml:"settle_delay"`
	PacingDelay        string `yaml:"pacing_delay"`
}

// BatchConfig configures batch runs and report output.
type BatchConfig struct {
	// PartialSaveEvery writes an intermediate report after this many
	// contracts. Zero disables partial saves.
	PartialSaveEvery int    `yaml:"partial_save_every"`
	OutputDir        string `yaml:"output_dir"`
	// InputEncoding names how contract files are decoded: utf-8 or latin-1.
	InputEncoding string `yaml:"input_encoding"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          false,
			ViewportWidth:     1920,
			ViewportHeight:    1080,
			NavigationTimeout: "30s",
		},
		Lookup: LookupConfig{
			DefaultTimeout:     "10s",
			HistoryWaitTimeout: "15s",
			SettleDelay:        "2s",
			PacingDelay:        "1s",
		},
		Batch: BatchConfig{
			PartialSaveEvery: 10,
			OutputDir:        ".",
			InputEncoding:    "utf-8",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Credentials are
// expected through the environment so they stay out of config files.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ESTEIRA_PORTAL_URL"); v != "" {
		c.Portal.URL = v
	}
	if v := os.Getenv("ESTEIRA_USER"); v != "" {
		c.Portal.Username = v
	}
	if v := os.Getenv("ESTEIRA_PASS"); v != "" {
		c.Portal.Password = v
	}
	if v := os.Getenv("ESTEIRA_DEBUGGER_URL"); v != "" {
		c.Browser.DebuggerURL = v
	}
	if v := os.Getenv("ESTEIRA_OUTPUT_DIR"); v != "" {
		c.Batch.OutputDir = v
	}
}

// NavigationTimeout returns the browser navigation timeout as a duration.
func (c *Config) NavigationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Browser.NavigationTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// DefaultTimeout returns the per-query lookup timeout as a duration.
func (c *Config) DefaultTimeout() time.Duration {
	d, err := time.ParseDuration(c.Lookup.DefaultTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// HistoryWaitTimeout returns the history wait timeout as a duration.
func (c *Config) HistoryWaitTimeout() time.Duration {
	d, err := time.ParseDuration(c.Lookup.HistoryWaitTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// SettleDelay returns the post-filter settle before probing for results.
func (c *Config) SettleDelay() time.Duration {
	d, err := time.ParseDuration(c.Lookup.SettleDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// PacingDelay returns the gap between consecutive lookups as a duration.
func (c *Config) PacingDelay() time.Duration {
	d, err := time.ParseDuration(c.Lookup.PacingDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// ValidEncodings lists the supported input file encodings.
var ValidEncodings = []string{"utf-8", "latin-1"}

// Validate validates the configuration for a batch run.
func (c *Config) Validate() error {
	if c.Portal.URL == "" {
		return fmt.Errorf("portal URL not configured (set portal.url or ESTEIRA_PORTAL_URL)")
	}
	if c.Portal.Username == "" || c.Portal.Password == "" {
		return fmt.Errorf("portal credentials not configured (set ESTEIRA_USER and ESTEIRA_PASS)")
	}

	validEnc := false
	for _, e := range ValidEncodings {
		if c.Batch.InputEncoding == e {
			validEnc = true
			break
		}
	}
	if !validEnc {
		return fmt.Errorf("invalid input encoding: %s (valid: %v)", c.Batch.InputEncoding, ValidEncodings)
	}
	return nil
}
