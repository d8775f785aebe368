// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tublox/tublox-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete tublox configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Gemini  GeminiConfig  `toml:"gemini" json:"gemini"`
	Voice   VoiceConfig   `toml:"voice" json:"voice"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// GeminiConfig configures the text streaming endpoint.
type GeminiConfig struct {
	APIKey string `toml:"api_key" json:"api_key"`
	Model  string `toml:"model" json:"model"`

	// BaseURL overrides the SDK endpoint. Empty uses the public API.
	BaseURL string `toml:"base_url" json:"base_url"`

	Temperature float64 `toml:"temperature" json:"temperature"`

	// DisableSearch turns off search grounding (and with it, citations).
	DisableSearch bool `toml:"disable_search" json:"disable_search"`

	// RequestsPerMinute paces outgoing requests. 0 means no limit.
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// VoiceConfig configures the realtime voice pipeline.
type VoiceConfig struct {
	Model     string `toml:"model" json:"model"`
	VoiceName string `toml:"voice_name" json:"voice_name"`

	// CaptureCommand and PlaybackCommand run the audio devices. "{rate}" is
	// replaced with the sample rate. Both exchange raw mono FLOAT_LE PCM.
	CaptureCommand  []string `toml:"capture_command" json:"capture_command"`
	PlaybackCommand []string `toml:"playback_command" json:"playback_command"`
}

// StorageConfig configures where sessions are persisted.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend" json:"backend"`

	// Dir holds the store. Empty means the tublox data directory.
	Dir string `toml:"dir" json:"dir"`

	// NoWatch disables picking up session changes written by other tublox processes.
	NoWatch bool `toml:"no_watch" json:"no_watch"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	Theme          string `toml:"theme" json:"theme"`
	WordWrap       int    `toml:"word_wrap" json:"word_wrap"`
	ShowTimestamps bool   `toml:"show_timestamps" json:"show_timestamps"`
	SidebarWidth   int    `toml:"sidebar_width" json:"sidebar_width"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	Path   string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultTextModel  = "gemini-3-pro-preview"
	DefaultVoiceModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoiceName  = "Puck"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Gemini: GeminiConfig{
			Model:       DefaultTextModel,
			Temperature: 0.7,
		},
		Voice: VoiceConfig{
			Model:           DefaultVoiceModel,
			VoiceName:       DefaultVoiceName,
			CaptureCommand:  []string{"arecord", "-q", "-t", "raw", "-f", "FLOAT_LE", "-c", "1", "-r", "{rate}"},
			PlaybackCommand: []string{"aplay", "-q", "-t", "raw", "-f", "FLOAT_LE", "-c", "1", "-r", "{rate}"},
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		UI: UIConfig{
			Theme:        "auto",
			WordWrap:     100,
			SidebarWidth: 28,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the tublox configuration directory.
func ConfigDir() string {
	return util.DataDir()
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// StorageDir returns the directory the session store lives in.
func (c *Config) StorageDir() string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	return ConfigDir()
}

// LogPath returns the log file path.
func (c *Config) LogPath() string {
	if c.Logging.Path != "" {
		return c.Logging.Path
	}
	return filepath.Join(ConfigDir(), "tublox.log")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads config.toml, falling back to config.json and then to defaults.
// Environment overrides are applied last. A missing file is not an error.
func Load() (*Config, error) {
	if path := ConfigPathTOML(); fileExists(path) {
		return LoadFromPath(path)
	}
	if path := ConfigPathJSON(); fileExists(path) {
		return LoadFromPath(path)
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific TOML or JSON file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := loadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := loadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// ReadFile decodes the file at path over the defaults without applying
// environment overrides, so the result can be edited and saved back. A
// missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if !fileExists(path) {
		return cfg, nil
	}
	load := loadTOML
	if strings.HasSuffix(path, ".json") {
		load = loadJSON
	}
	if err := load(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	return SaveTOML(cfg, ConfigPathTOML())
}

// SaveTOML writes cfg to path with 0600 permissions, since it may hold the API key.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# tublox configuration file\n")
	buf.WriteString("# API keys may also come from GEMINI_API_KEY or API_KEY.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ErrNoAPIKey is returned by RequireAPIKey when no key is configured.
var ErrNoAPIKey = errors.New("no Gemini API key configured (set GEMINI_API_KEY or gemini.api_key)")

// RequireAPIKey fails when the text or voice endpoints cannot be reached
// for lack of a key. Validate does not check this so that offline commands
// (sessions, export, config) keep working without one.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrNoAPIKey
	}
	return nil
}

// Validate checks the configuration and returns ValidateErrors on failure.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Gemini.Model == "" {
		errs = append(errs, ValidationError{Field: "gemini.model", Message: "must not be empty"})
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "gemini.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Gemini.Temperature),
		})
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "gemini.requests_per_minute", Message: "must be non-negative"})
	}
	if c.Gemini.BaseURL != "" {
		if u, err := url.Parse(c.Gemini.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{Field: "gemini.base_url", Message: fmt.Sprintf("invalid URL %q", c.Gemini.BaseURL)})
		}
	}

	if len(c.Voice.CaptureCommand) == 0 {
		errs = append(errs, ValidationError{Field: "voice.capture_command", Message: "must not be empty"})
	}
	if len(c.Voice.PlaybackCommand) == 0 {
		errs = append(errs, ValidationError{Field: "voice.playback_command", Message: "must not be empty"})
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite", c.Storage.Backend),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: fmt.Sprintf("must be at least 20, got %d", c.UI.WordWrap)})
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: "must be text or json"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-valued fields from Default.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = d.Gemini.Model
	}
	if c.Voice.Model == "" {
		c.Voice.Model = d.Voice.Model
	}
	if c.Voice.VoiceName == "" {
		c.Voice.VoiceName = d.Voice.VoiceName
	}
	if len(c.Voice.CaptureCommand) == 0 {
		c.Voice.CaptureCommand = d.Voice.CaptureCommand
	}
	if len(c.Voice.PlaybackCommand) == 0 {
		c.Voice.PlaybackCommand = d.Voice.PlaybackCommand
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - TUBLOX_API_KEY, GEMINI_API_KEY, API_KEY: gemini.api_key (first set wins)
//   - TUBLOX_MODEL: gemini.model
//   - TUBLOX_VOICE_MODEL: voice.model
//   - TUBLOX_STORAGE: storage.backend
//   - TUBLOX_LOG_LEVEL: logging.level
func (c *Config) ApplyEnvOverrides() {
	for _, name := range []string{"TUBLOX_API_KEY", "GEMINI_API_KEY", "API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.Gemini.APIKey = key
			break
		}
	}
	if model := os.Getenv("TUBLOX_MODEL"); model != "" {
		c.Gemini.Model = model
	}
	if model := os.Getenv("TUBLOX_VOICE_MODEL"); model != "" {
		c.Voice.Model = model
	}
	if backend := os.Getenv("TUBLOX_STORAGE"); backend != "" {
		c.Storage.Backend = backend
	}
	if level := os.Getenv("TUBLOX_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy safe to print, with the API key masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Voice.CaptureCommand = append([]string(nil), c.Voice.CaptureCommand...)
	cp.Voice.PlaybackCommand = append([]string(nil), c.Voice.PlaybackCommand...)
	if k := cp.Gemini.APIKey; k != "" {
		if len(k) > 8 {
			cp.Gemini.APIKey = k[:4] + "..." + k[len(k)-4:]
		} else {
			cp.Gemini.APIKey = "****"
		}
	}
	return &cp
}

// String renders the redacted configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
