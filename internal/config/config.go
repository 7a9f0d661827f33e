package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"secretgrab/internal/browser"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "secretgrab.yaml"

// Config holds all secretgrab configuration.
type Config struct {
	// Browser launch and capture timing
	Browser BrowserConfig `yaml:"browser"`

	// Where results are written
	Output OutputConfig `yaml:"output"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig configures the Chrome instance and the capture wait.
type BrowserConfig struct {
	DebuggerURL string   `yaml:"debugger_url"` // attach instead of launching
	ChromeBin   string   `yaml:"chrome_bin"`
	LaunchFlags []string `yaml:"launch_flags,omitempty"`
	Headless    bool     `yaml:"headless"`

	NavigationTimeout string `yaml:"navigation_timeout"`
	CaptureTimeout    string `yaml:"capture_timeout"`
	CapturePoll       string `yaml:"capture_poll"`
	CaptureSettle     string `yaml:"capture_settle"`
}

// OutputConfig configures the result files.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	SaveRaw bool   `yaml:"save_raw"` // also write captures.json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: "30s",
			CaptureTimeout:    "3s",
			CapturePoll:       "100ms",
			CaptureSettle:     "250ms",
		},
		Output: OutputConfig{
			Dir: "secrets",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file on disk.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs loads configuration from a YAML file on fs. A missing file yields the defaults.
// Environment overrides are applied in both cases.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Return defaults if config file doesn't exist
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file on disk.
func (c *Config) Save(path string) error {
	return c.SaveFs(afero.NewOsFs(), path)
}

// SaveFs saves configuration to a YAML file on fs.
func (c *Config) SaveFs(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("SECRETGRAB_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
	if bin := os.Getenv("SECRETGRAB_CHROME_BIN"); bin != "" {
		c.Browser.ChromeBin = bin
	}
	if v := os.Getenv("SECRETGRAB_HEADLESS"); v != "" {
		if headless, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = headless
		}
	}
	if dir := os.Getenv("SECRETGRAB_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if level := os.Getenv("SECRETGRAB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetNavigationTimeout returns the navigation timeout as a duration.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 30*time.Second)
}

// GetCaptureTimeout returns the capture wait bound as a duration.
func (c *Config) GetCaptureTimeout() time.Duration {
	return parseDuration(c.Browser.CaptureTimeout, 3*time.Second)
}

// GetCapturePoll returns the capture buffer poll interval as a duration.
func (c *Config) GetCapturePoll() time.Duration {
	return parseDuration(c.Browser.CapturePoll, 100*time.Millisecond)
}

// GetCaptureSettle returns the post-capture grace period as a duration.
func (c *Config) GetCaptureSettle() time.Duration {
	return parseDuration(c.Browser.CaptureSettle, 250*time.Millisecond)
}

// BrowserConfig converts the browser section into a session manager config.
func (c *Config) BrowserConfig() browser.Config {
	return browser.Config{
		DebuggerURL:         c.Browser.DebuggerURL,
		Bin:                 c.Browser.ChromeBin,
		Flags:               append([]string(nil), c.Browser.LaunchFlags...),
		Headless:            c.Browser.Headless,
		NavigationTimeoutMs: int(c.GetNavigationTimeout().Milliseconds()),
		CaptureTimeoutMs:    int(c.GetCaptureTimeout().Milliseconds()),
		CapturePollMs:       int(c.GetCapturePoll().Milliseconds()),
		CaptureSettleMs:     int(c.GetCaptureSettle().Milliseconds()),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return errors.New("output directory not configured (set output.dir or SECRETGRAB_OUTPUT_DIR)")
	}
	if c.GetCaptureTimeout() <= 0 {
		return fmt.Errorf("invalid capture timeout: %q (must be positive)", c.Browser.CaptureTimeout)
	}
	if c.GetNavigationTimeout() <= 0 {
		return fmt.Errorf("invalid navigation timeout: %q (must be positive)", c.Browser.NavigationTimeout)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}
