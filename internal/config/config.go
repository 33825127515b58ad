// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ollamachat/internal/logging"
	"github.com/jeranaias/ollamachat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ollamachat configuration.
type Config struct {
	Version string `toml:"version"`

	// Ollama backend configuration
	Ollama OllamaConfig `toml:"ollama"`

	// Chat defaults shown in the parameter fields at startup
	Chat ChatConfig `toml:"chat"`

	// Streaming behaviour of the session controller
	Stream StreamConfig `toml:"stream"`

	// Session file locations
	Storage StorageConfig `toml:"storage"`

	// Log output
	Log logging.Config `toml:"log"`
}

// OllamaConfig contains backend connection settings.
type OllamaConfig struct {
	// URL is the Ollama base URL
	URL string `toml:"url"`
	// Model is preselected when it appears in the model list
	Model string `toml:"model"`
	// RequestTimeoutSecs bounds the non-streaming calls (model list, health)
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// ChatConfig contains the initial request parameters.
type ChatConfig struct {
	Temperature  float64 `toml:"temperature"`
	MaxTokens    int     `toml:"max_tokens"`
	SystemPrompt string  `toml:"system_prompt"`
}

// StreamConfig contains session controller settings.
type StreamConfig struct {
	// IdleTimeoutSecs aborts a stream that sends nothing for this long (0 = never)
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
	// EventBuffer is the capacity of the controller's event queue
	EventBuffer int `toml:"event_buffer"`
	// PersistEmptyResponses keeps assistant turns with no content in the history
	PersistEmptyResponses bool `toml:"persist_empty_responses"`
}

// StorageConfig contains session file settings.
type StorageConfig struct {
	// SessionsDir resolves relative paths typed into the save/load prompt
	SessionsDir string `toml:"sessions_dir"`
}

// RequestTimeout returns the non-streaming request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Ollama.RequestTimeoutSecs) * time.Second
}

// IdleTimeout returns the stream idle timeout, zero when disabled.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Stream.IdleTimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultURL         = "http://127.0.0.1:11434"
	DefaultTemperature = 0.0
	DefaultMaxTokens   = 4000
)

// Default returns a Config with sensible default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".ollamachat"
	}

	return &Config{
		Version: "1",
		Ollama: OllamaConfig{
			URL:                DefaultURL,
			RequestTimeoutSecs: 30,
		},
		Chat: ChatConfig{
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
		Stream: StreamConfig{
			IdleTimeoutSecs:       300,
			EventBuffer:           256,
			PersistEmptyResponses: true,
		},
		Storage: StorageConfig{
			SessionsDir: filepath.Join(dir, "sessions"),
		},
		Log: logging.Config{
			File:       filepath.Join(dir, "ollamachat.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the ollamachat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollamachat"), nil
}

// ConfigPath returns the path to the default TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the default config file if it exists, then applies environment
// overrides and validates the result. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from path. A missing file yields defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", statErr)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, atomically and owner-readable only.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ollamachat configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// OVERRIDES AND DEFAULTS
// =============================================================================

// ApplyEnvOverrides applies OLLAMACHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("OLLAMACHAT_URL"); u != "" {
		c.Ollama.URL = u
	}
	if model := os.Getenv("OLLAMACHAT_MODEL"); model != "" {
		c.Ollama.Model = model
	}
	if level := os.Getenv("OLLAMACHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Ollama.URL == "" {
		c.Ollama.URL = d.Ollama.URL
	}
	c.Ollama.URL = strings.TrimRight(c.Ollama.URL, "/")
	if c.Ollama.RequestTimeoutSecs == 0 {
		c.Ollama.RequestTimeoutSecs = d.Ollama.RequestTimeoutSecs
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = d.Chat.MaxTokens
	}
	if c.Stream.EventBuffer == 0 {
		c.Stream.EventBuffer = d.Stream.EventBuffer
	}
	if c.Storage.SessionsDir == "" {
		c.Storage.SessionsDir = d.Storage.SessionsDir
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Ollama.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "ollama.url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Ollama.URL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "ollama.url",
			Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
		})
	}

	if c.Ollama.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "ollama.request_timeout_secs", Message: "must not be negative"})
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("%g is outside [0, 1]", c.Chat.Temperature),
		})
	}
	if c.Chat.MaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "chat.max_tokens", Message: "must be at least 1"})
	}
	if c.Stream.IdleTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "stream.idle_timeout_secs", Message: "must not be negative"})
	}
	if c.Stream.EventBuffer < 1 {
		errs = append(errs, ValidationError{Field: "stream.event_buffer", Message: "must be at least 1"})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
