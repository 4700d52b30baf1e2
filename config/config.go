// ABOUTME: Application configuration stored as JSON under the XDG config directory
// ABOUTME: Loads .env files, applies KIN_* environment overrides and validates resolver thresholds
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/harperreed/kin/resolver"
)

const (
	AppName        = "kin"
	ConfigFileName = "config.json"

	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is everything the composition root needs to build the stores,
// resolver and linker.
type Config struct {
	DBPath       string `json:"db_path,omitempty"`
	Backend      string `json:"backend"`
	MappingsPath string `json:"mappings_path,omitempty"`
	LogLevel     string `json:"log_level"`

	// AutoAcceptThreshold is the confidence at which matches skip review.
	AutoAcceptThreshold float64 `json:"auto_accept_threshold"`

	Resolver ResolverConfig `json:"resolver"`
}

// ResolverConfig mirrors resolver.Config with JSON names.
type ResolverConfig struct {
	NameWeight              float64 `json:"name_weight"`
	ContextBoost            float64 `json:"context_boost"`
	RecencyBoost            float64 `json:"recency_boost"`
	RecencyThresholdDays    int     `json:"recency_threshold_days"`
	MinMatchScore           float64 `json:"min_match_score"`
	DisambiguationGap       float64 `json:"disambiguation_gap"`
	RelationshipWeight      float64 `json:"relationship_weight"`
	RelationshipCap         float64 `json:"relationship_cap"`
	FirstNameOnlyMultiplier float64 `json:"first_name_only_multiplier"`
	DefaultRegion           string  `json:"default_region"`
}

// ConfigDir returns the XDG config directory for kin.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}

// DataDir returns the XDG data directory holding the database and tokens.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func DefaultDBPath() string {
	return filepath.Join(DataDir(), "kin.db")
}

func Default() *Config {
	rc := resolver.DefaultConfig()
	return &Config{
		DBPath:              DefaultDBPath(),
		Backend:             BackendSQLite,
		LogLevel:            "info",
		AutoAcceptThreshold: 0.9,
		Resolver: ResolverConfig{
			NameWeight:              rc.NameWeight,
			ContextBoost:            rc.ContextBoost,
			RecencyBoost:            rc.RecencyBoost,
			RecencyThresholdDays:    rc.RecencyThresholdDays,
			MinMatchScore:           rc.MinMatchScore,
			DisambiguationGap:       rc.DisambiguationGap,
			RelationshipWeight:      rc.RelationshipWeight,
			RelationshipCap:         rc.RelationshipCap,
			FirstNameOnlyMultiplier: rc.FirstNameOnlyMultiplier,
			DefaultRegion:           rc.DefaultRegion,
		},
	}
}

// Load reads the config file at path, or the XDG path when path is empty.
// A missing file yields the defaults. Environment variables, including any
// from a .env file in the working or config directory, override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	loadDotEnv()

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer func() { _ = f.Close() }()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv() {
	for _, candidate := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
		}
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KIN_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("KIN_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("KIN_MAPPINGS"); v != "" {
		cfg.MappingsPath = v
	}
	if v := os.Getenv("KIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("KIN_DEFAULT_REGION"); v != "" {
		cfg.Resolver.DefaultRegion = strings.ToUpper(v)
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{"KIN_MIN_MATCH_SCORE", &cfg.Resolver.MinMatchScore},
		{"KIN_DISAMBIGUATION_GAP", &cfg.Resolver.DisambiguationGap},
		{"KIN_AUTO_ACCEPT", &cfg.AutoAcceptThreshold},
	}
	for _, f := range floats {
		v := os.Getenv(f.env)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, f.env, v)
		}
		*f.dst = parsed
	}
	return nil
}

// Validate rejects settings the resolver cannot work with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendCharm:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.AutoAcceptThreshold <= 0 || c.AutoAcceptThreshold > 1 {
		return fmt.Errorf("%w: auto_accept_threshold must be in (0, 1]", ErrInvalidConfig)
	}
	r := c.Resolver
	if r.NameWeight <= 0 {
		return fmt.Errorf("%w: name_weight must be positive", ErrInvalidConfig)
	}
	if r.MinMatchScore < 0 || r.DisambiguationGap < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidConfig)
	}
	if r.ContextBoost < 0 || r.RecencyBoost < 0 || r.RelationshipWeight < 0 || r.RelationshipCap < 0 {
		return fmt.Errorf("%w: boosts must not be negative", ErrInvalidConfig)
	}
	if r.RecencyThresholdDays < 0 {
		return fmt.Errorf("%w: recency_threshold_days must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ResolverConfig converts to the resolver's config, filling unset values with defaults.
func (c *Config) ResolverConfig() resolver.Config {
	rc := resolver.Config{
		NameWeight:              c.Resolver.NameWeight,
		ContextBoost:            c.Resolver.ContextBoost,
		RecencyBoost:            c.Resolver.RecencyBoost,
		RecencyThresholdDays:    c.Resolver.RecencyThresholdDays,
		MinMatchScore:           c.Resolver.MinMatchScore,
		DisambiguationGap:       c.Resolver.DisambiguationGap,
		RelationshipWeight:      c.Resolver.RelationshipWeight,
		RelationshipCap:         c.Resolver.RelationshipCap,
		FirstNameOnlyMultiplier: c.Resolver.FirstNameOnlyMultiplier,
		DefaultRegion:           c.Resolver.DefaultRegion,
	}
	if rc.FirstNameOnlyMultiplier == 0 {
		rc.FirstNameOnlyMultiplier = 1
	}
	if rc.DefaultRegion == "" {
		rc.DefaultRegion = resolver.DefaultConfig().DefaultRegion
	}
	return rc
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}

// Save writes the config to the XDG path with owner-only permissions.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
