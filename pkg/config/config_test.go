package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".veil"), cfg.DataDir)
	assert.False(t, cfg.Headless, "profiles are interactive, default is headful")
	assert.Equal(t, "https://www.google.com", cfg.StartURL)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, "https://httpbin.org/ip", cfg.CheckURL)
	assert.Equal(t, "https://ipinfo.io", cfg.GeoEndpoint)
	assert.Equal(t, 15*time.Second, cfg.CheckTimeout)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	want, err := Default()
	require.NoError(t, err)
	assert.Equal(t, want, cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `data_dir: /var/lib/veil
headless: true
start_url: https://example.com
geo_endpoint: https://geo.internal
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/veil", cfg.DataDir)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "https://example.com", cfg.StartURL)
	assert.Equal(t, "https://geo.internal", cfg.GeoEndpoint)
	// Anything the file leaves unset keeps its default.
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, "https://httpbin.org/ip", cfg.CheckURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DataDir:           "/tmp/veil",
			StartURL:          "https://example.com",
			NavigationTimeout: time.Second,
			CheckTimeout:      time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data_dir", func(c *Config) { c.DataDir = "" }},
		{"empty start_url", func(c *Config) { c.StartURL = "" }},
		{"zero navigation_timeout", func(c *Config) { c.NavigationTimeout = 0 }},
		{"negative check_timeout", func(c *Config) { c.CheckTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDerivedDirectories(t *testing.T) {
	cfg := &Config{DataDir: "/data/veil"}
	assert.Equal(t, filepath.Join("/data/veil", "profiles"), cfg.ProfilesDir())
	assert.Equal(t, filepath.Join("/data/veil", "proxies"), cfg.ProxiesDir())
	assert.Equal(t, filepath.Join("/data/veil", "logs"), cfg.LogsDir())
}
