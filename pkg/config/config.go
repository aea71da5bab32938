// Package config defines Veil's application configuration. The data
// directory is an explicit value handed to the registries at construction;
// business logic never reads ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from a YAML file with
// defaults applied for anything unset.
type Config struct {
	// DataDir is the root under which profiles/ and proxies/ live.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Headless launches browser processes without a visible window.
	// Profiles are interactive identities, so the default is headful.
	Headless bool `yaml:"headless" json:"headless"`

	// StartURL is the page every launched profile navigates to first.
	StartURL string `yaml:"start_url" json:"start_url"`

	// NavigationTimeout bounds the first page load.
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`

	// CheckURL is the IP-echo endpoint used by proxy health checks.
	CheckURL string `yaml:"check_url" json:"check_url"`

	// GeoEndpoint is the geolocation service queried per proxy host.
	GeoEndpoint string `yaml:"geo_endpoint" json:"geo_endpoint"`

	// CheckTimeout bounds health-check and geolocation requests.
	CheckTimeout time.Duration `yaml:"check_timeout" json:"check_timeout"`
}

// Default returns the configuration used when no file is present.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve home directory: %w", err)
	}
	return &Config{
		DataDir:           filepath.Join(home, ".veil"),
		Headless:          false,
		StartURL:          "https://www.google.com",
		NavigationTimeout: 30 * time.Second,
		CheckURL:          "https://httpbin.org/ip",
		GeoEndpoint:       "https://ipinfo.io",
		CheckTimeout:      15 * time.Second,
	}, nil
}

// Load reads the config file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir is required")
	}
	if c.StartURL == "" {
		return fmt.Errorf("config: start_url is required")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("config: navigation_timeout must be positive")
	}
	if c.CheckTimeout <= 0 {
		return fmt.Errorf("config: check_timeout must be positive")
	}
	return nil
}

// ProfilesDir returns the profile registry root.
func (c *Config) ProfilesDir() string {
	return filepath.Join(c.DataDir, "profiles")
}

// ProxiesDir returns the proxy registry root.
func (c *Config) ProxiesDir() string {
	return filepath.Join(c.DataDir, "proxies")
}

// LogsDir returns the log directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}
