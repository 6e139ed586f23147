package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/metamonitor/internal/cognitive/monitor"
)

// EnvPrefix prefixes environment overrides, e.g. METAMONITOR_LOGGING_LEVEL.
const EnvPrefix = "METAMONITOR"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration for metamonitor.
// It is loaded from ~/.metamonitor/config.yaml and can be overridden by environment variables.
type Config struct {
	Monitor monitor.Config `mapstructure:"monitor" yaml:"monitor"`
	Session SessionConfig  `mapstructure:"session" yaml:"session"`
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Store   StoreConfig    `mapstructure:"store" yaml:"store"`
}

// SessionConfig controls the lifetime of monitored sessions.
type SessionConfig struct {
	// TTL is how long an idle session is kept before the janitor drops it
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// CleanupInterval is how often expired sessions are collected
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
	// MaxSessions caps concurrently tracked sessions (0 = unlimited)
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file (empty = stderr only)
	File string `mapstructure:"file" yaml:"file"`
	// Format is "console" for humans or "json"
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig configures the SQLite intervention store.
type StoreConfig struct {
	// Enabled turns persistence of signals and interventions on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Path is the SQLite database file
	Path string `mapstructure:"path" yaml:"path"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	dataDir := DataDir()

	return &Config{
		Monitor: monitor.DefaultConfig(),
		Session: SessionConfig{
			TTL:             time.Hour,
			CleanupInterval: 5 * time.Minute,
			MaxSessions:     0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   "",
			Format: "console",
		},
		Store: StoreConfig{
			Enabled: false,
			Path:    filepath.Join(dataDir, "metamonitor.db"),
		},
	}
}

// DataDir returns the metamonitor data directory (~/.metamonitor).
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".metamonitor")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads configuration from the default location and merges with
// environment variables. If no config file exists, it creates one with
// default values.
func Load() (*Config, error) {
	return LoadFromPath(DefaultPath())
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: METAMONITOR_MONITOR_CIRCULAR_THRESHOLD=0.7
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Missing keys keep their defaults.
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return cfg, nil
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	return c.SaveToPath(DefaultPath())
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	m := c.Monitor

	if m.HistoryCapacity < 1 {
		return fmt.Errorf("%w: monitor.history_capacity must be positive", ErrInvalid)
	}
	if m.Distractor.HistoryCapacity < 3 {
		return fmt.Errorf("%w: monitor.distractor.history_capacity must be at least 3", ErrInvalid)
	}
	if m.Quality.HistoryCapacity < m.Quality.MinMetrics {
		return fmt.Errorf("%w: monitor.quality.history_capacity must be at least min_metrics", ErrInvalid)
	}

	unit := map[string]float64{
		"monitor.circular_threshold":            m.CircularThreshold,
		"monitor.degrading_score":               m.DegradingScore,
		"monitor.declining_score":               m.DecliningScore,
		"monitor.circular.direct_threshold":     m.Circular.DirectThreshold,
		"monitor.circular.conceptual_threshold": m.Circular.ConceptualThreshold,
		"monitor.circular.semantic_weight":      m.Circular.SemanticWeight,
		"monitor.distractor.drift_threshold":    m.Distractor.DriftThreshold,
		"monitor.distractor.low_relevance":      m.Distractor.LowRelevance,
	}
	for _, key := range slices.Sorted(maps.Keys(unit)) {
		if v := unit[key]; v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %.2f", ErrInvalid, key, v)
		}
	}
	if m.DecliningScore > m.DegradingScore {
		return fmt.Errorf("%w: monitor.declining_score cannot exceed degrading_score", ErrInvalid)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("%w: session.ttl must be positive", ErrInvalid)
	}
	if c.Session.CleanupInterval <= 0 {
		return fmt.Errorf("%w: session.cleanup_interval must be positive", ErrInvalid)
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("%w: session.max_sessions cannot be negative", ErrInvalid)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level '%s', must be one of: debug, info, warn, error", ErrInvalid, c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: invalid log format '%s', must be 'console' or 'json'", ErrInvalid, c.Logging.Format)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required when the store is enabled", ErrInvalid)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
