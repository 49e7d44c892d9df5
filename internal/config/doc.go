// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for jeeves.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - EngineConfig: native engine model path, context and threads
//   - RoutingConfig: routing mode, escalation threshold, offline mode
//   - SecondaryConfig: platform daemon tier
//   - ValidateErrors: every validation failure found
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (JEEVES_*)
//   - ~/.jeeves/config.toml
//   - ~/.jeeves/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mode := cfg.RoutingMode()
//	opts := cfg.RequestOptions()
package config
