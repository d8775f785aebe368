// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for tublox.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: top-level settings
//   - GeminiConfig: text model endpoint, key, sampling, and pacing
//   - VoiceConfig: realtime model, voice, and audio device commands
//   - StorageConfig: session store backend and location
//   - UIConfig, LoggingConfig: presentation and log output
//
// # Configuration Precedence
//
//   - Environment variables (TUBLOX_*, GEMINI_API_KEY, API_KEY)
//   - $TUBLOX_HOME/config.toml (default ~/.tublox/config.toml)
//   - $TUBLOX_HOME/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	model := cfg.Gemini.Model
package config
