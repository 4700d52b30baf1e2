// ABOUTME: Connection settings for the Charm KV person directory
// ABOUTME: Persists host and auto-sync preferences as JSON under the XDG data dir

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"
)

const (
	DefaultCharmHost = "charm.2389.dev"

	// AppName is both the Charm KV database name and the data directory name.
	AppName = "kin"

	settingsFile = AppName + "/charm.json"
	hostEnv      = "KIN_CHARM_HOST"
)

// Config is how this device reaches the shared directory.
type Config struct {
	Host string `json:"host,omitempty"`

	// AutoSync pushes after each write and pulls when the client opens.
	AutoSync bool `json:"auto_sync"`

	// StaleThreshold is how old local data may get before a read triggers a pull.
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`

	path string
}

func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

// LoadConfig reads the device settings from the XDG data dir. A missing file
// yields defaults. KIN_CHARM_HOST wins over the saved host.
func LoadConfig() (*Config, error) {
	path, err := xdg.DataFile(settingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to locate charm settings: %w", err)
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if host := os.Getenv(hostEnv); host != "" {
		cfg.Host = host
	}
	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read charm settings: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("charm settings %s are not valid JSON: %w", path, err)
	}

	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = kv.DefaultStaleThreshold
	}
	return cfg, nil
}

// Save writes the settings back to the file they were loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := xdg.DataFile(settingsFile)
		if err != nil {
			return fmt.Errorf("failed to locate charm settings: %w", err)
		}
		c.path = path
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode charm settings: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write charm settings: %w", err)
	}
	return nil
}

func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}
