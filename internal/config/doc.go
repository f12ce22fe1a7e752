// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for flaskchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Where the FlaskChat API lives and how long to wait
//   - UIConfig: Theme, markdown renderer and layout
//   - ServerConfig: Settings for the local development backend
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (FLASKCHAT_*), including those from ./.env
//   - ~/.flaskchat/config.toml
//   - ~/.flaskchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Follow edits while the TUI runs:
//
//	go config.Watch(ctx, path, 0, func(c *config.Config) { ... }, nil)
package config
