package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultOfficialSourceURL is the manifest of the built-in source.
const DefaultOfficialSourceURL = "https://developer.nordicsemi.com/.pc-tools/nrfconnect-apps/source.json"

// Config captures the launcher settings that affect app management.
type Config struct {
	Version           int           `yaml:"version"`
	AppsRootDir       string        `yaml:"apps_root_dir,omitempty"`
	OfficialSourceURL string        `yaml:"official_source_url"`
	Network           NetworkConfig `yaml:"network"`
	Sync              SyncConfig    `yaml:"sync"`
	IPC               IPCConfig     `yaml:"ipc"`
}

// NetworkConfig controls downloads.
type NetworkConfig struct {
	Proxy     string `yaml:"proxy,omitempty"`
	TimeoutS  int    `yaml:"timeout_s"`
	UserAgent string `yaml:"user_agent"`
}

// SyncConfig controls source and app metadata refreshes.
type SyncConfig struct {
	Concurrency    int  `yaml:"concurrency"`
	SkipUpdateApps bool `yaml:"skip_update_apps"`
}

// IPCConfig controls the message boundary served to the UI.
type IPCConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:           1,
		OfficialSourceURL: DefaultOfficialSourceURL,
		Network: NetworkConfig{
			TimeoutS:  60,
			UserAgent: "launcher/1.0",
		},
		Sync: SyncConfig{
			Concurrency: 4,
		},
		IPC: IPCConfig{
			Listen: "127.0.0.1:47321",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to sensible defaults when the YAML
// omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.OfficialSourceURL == "" {
		c.OfficialSourceURL = defaults.OfficialSourceURL
	}
	if c.Network.TimeoutS == 0 {
		c.Network.TimeoutS = defaults.Network.TimeoutS
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = defaults.Network.UserAgent
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = defaults.Sync.Concurrency
	}
	if c.IPC.Listen == "" {
		c.IPC.Listen = defaults.IPC.Listen
	}
}

// Timeout returns the per-request download timeout.
func (c Config) Timeout() time.Duration {
	if c.Network.TimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.Network.TimeoutS) * time.Second
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
