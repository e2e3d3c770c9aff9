package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/proofread/internal/oracle"
	"github.com/fakeyudi/proofread/internal/session"
)

// Config holds all configurable proofread settings.
type Config struct {
	Provider       string `json:"provider"`        // "gemini" | "mock"
	Model          string `json:"model"`
	APIKeyEnv      string `json:"api_key_env"`     // environment variable holding the key
	Endpoint       string `json:"endpoint"`        // override the oracle base URL
	StaleThreshold *int   `json:"stale_threshold"` // 0 = any edit drops corrections
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxAttempts    int    `json:"max_attempts"`
	DefaultFormat  string `json:"default_format"` // "text" | "markdown" | "json" | "yaml"
	HistoryPath    string `json:"history_path"`   // override the XDG data location
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	threshold := session.DefaultStaleThreshold
	return Config{
		Provider:       "gemini",
		Model:          oracle.DefaultModel,
		APIKeyEnv:      "GEMINI_API_KEY",
		StaleThreshold: &threshold,
		TimeoutSeconds: 120,
		MaxAttempts:    2,
		DefaultFormat:  "text",
	}
}

// Threshold returns the stale threshold with the default applied.
func (c Config) Threshold() int {
	if c.StaleThreshold == nil {
		return session.DefaultStaleThreshold
	}
	return *c.StaleThreshold
}

// Timeout returns the per-analysis deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GlobalPath returns ~/.config/proofread/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "proofread", "config.json"), nil
}

// LoadGlobal reads ~/.config/proofread/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .proofreadconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".proofreadconfig", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	overlay(&result, global)
	overlay(&result, project)
	return result
}

func overlay(dst *Config, src *Config) {
	if src == nil {
		return
	}
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.APIKeyEnv != "" {
		dst.APIKeyEnv = src.APIKeyEnv
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.StaleThreshold != nil {
		v := *src.StaleThreshold
		dst.StaleThreshold = &v
	}
	if src.TimeoutSeconds > 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.MaxAttempts > 0 {
		dst.MaxAttempts = src.MaxAttempts
	}
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.HistoryPath != "" {
		dst.HistoryPath = src.HistoryPath
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
