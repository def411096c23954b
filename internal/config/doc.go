// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for relay.
//
// Supports TOML, YAML and JSON configuration files, .env credential files,
// environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: complete configuration
//   - ProviderEntry: model, credential and endpoint for one backend
//   - ChatConfig: system prompt, token limit, history bound and timeouts
//   - LogConfig / TelemetryConfig / UIConfig: ambient settings
//   - Watcher: reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (highest first):
//   - Environment variables (RELAY_*, ANTHROPIC_API_KEY, OPENAI_API_KEY,
//     GEMINI_API_KEY, OLLAMA_HOST)
//   - .env files in the working directory and ~/.relay (never overriding
//     variables already set)
//   - ~/.relay/config.toml, config.yaml or config.json (first found)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pcfg := cfg.ProviderConfig(cfg.ActiveProvider())
//
// A job reads its provider.Config once, at send time, so a reloaded or
// edited configuration applies to the next prompt without a restart.
package config
