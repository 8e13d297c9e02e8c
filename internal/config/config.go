// ABOUTME: Configuration loading and parsing for ponder
// ABOUTME: Supports TOML files with environment variable expansion and validation

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete ponder configuration
type Config struct {
	Matrix    MatrixConfig    `toml:"matrix"`
	Anthropic AnthropicConfig `toml:"anthropic"`
	Database  DatabaseConfig  `toml:"database"`
	Session   SessionConfig   `toml:"session"`
	Scaling   ScalingConfig   `toml:"scaling"`
	Limits    LimitsConfig    `toml:"limits"`
	Research  ResearchConfig  `toml:"research"`
	Logging   LoggingConfig   `toml:"logging"`
}

// MatrixConfig holds the chat platform connection settings
type MatrixConfig struct {
	Homeserver      string   `toml:"homeserver"`
	UserID          string   `toml:"user_id"`
	AccessToken     string   `toml:"access_token"`
	AllowedRooms    []string `toml:"allowed_rooms"`
	CommandPrefix   string   `toml:"command_prefix"`
	TypingIndicator bool     `toml:"typing_indicator"`
}

// AnthropicConfig holds the model service settings
type AnthropicConfig struct {
	APIKey       string  `toml:"api_key"`
	Model        string  `toml:"model"`
	MaxTokens    int     `toml:"max_tokens"`
	Temperature  float64 `toml:"temperature"`
	SystemPrompt string  `toml:"system_prompt"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SessionConfig bounds per-user conversation history
type SessionConfig struct {
	MaxContextTokens int `toml:"max_context_tokens"`
}

// ScalingConfig holds the test-time scaling defaults and effort bounds
type ScalingConfig struct {
	MinEffort     int    `toml:"min_effort"`
	MaxEffort     int    `toml:"max_effort"`
	DefaultEffort int    `toml:"default_effort"`
	DefaultMode   string `toml:"default_mode"`
}

// LimitsConfig throttles the shared model client across all users
type LimitsConfig struct {
	RequestsPerMinute int           `toml:"requests_per_minute"`
	Burst             int           `toml:"burst"`
	MaxConcurrent     int           `toml:"max_concurrent"`
	AcquireTimeout    time.Duration `toml:"-"`

	// Raw string value for TOML unmarshaling
	AcquireTimeoutRaw string `toml:"acquire_timeout"`
}

// ResearchConfig holds the optional research-QA sidecar settings
type ResearchConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := defaults()
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-filled with working defaults; the TOML
// file only needs to supply credentials and overrides.
func defaults() *Config {
	return &Config{
		Matrix: MatrixConfig{
			CommandPrefix:   "!",
			TypingIndicator: true,
		},
		Anthropic: AnthropicConfig{
			Model:       "claude-3-5-sonnet-20240620",
			MaxTokens:   4096,
			Temperature: 0.1,
		},
		Database: DatabaseConfig{
			Path: "ponder.db",
		},
		Session: SessionConfig{
			MaxContextTokens: 24000,
		},
		Scaling: ScalingConfig{
			MinEffort:     0,
			MaxEffort:     8,
			DefaultEffort: 2,
			DefaultMode:   "normal",
		},
		Limits: LimitsConfig{
			RequestsPerMinute: 50,
			Burst:             5,
			MaxConcurrent:     4,
			AcquireTimeoutRaw: "30s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// parseDurations converts raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Limits.AcquireTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Limits.AcquireTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing limits.acquire_timeout %q: %w", cfg.Limits.AcquireTimeoutRaw, err)
		}
		cfg.Limits.AcquireTimeout = d
	}
	return nil
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if _, err := url.Parse(c.Matrix.Homeserver); err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Session.MaxContextTokens <= 0 {
		return fmt.Errorf("session.max_context_tokens must be positive")
	}
	if c.Scaling.MinEffort < 0 {
		return fmt.Errorf("scaling.min_effort must not be negative")
	}
	if c.Scaling.MaxEffort < c.Scaling.MinEffort {
		return fmt.Errorf("scaling.max_effort must be >= scaling.min_effort")
	}
	if c.Scaling.DefaultMode != "normal" && c.Scaling.DefaultMode != "scaling" {
		return fmt.Errorf("scaling.default_mode must be %q or %q", "normal", "scaling")
	}
	if c.Research.Enabled && c.Research.URL == "" {
		return fmt.Errorf("research.url is required when research is enabled")
	}
	return nil
}
