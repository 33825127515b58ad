// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ollamachat.
//
// Configuration is read from TOML, layered over built-in defaults, and then
// overridden by environment variables:
//
//   - OLLAMACHAT_URL        Ollama base URL
//   - OLLAMACHAT_MODEL      model preselected in the model selector
//   - OLLAMACHAT_LOG_LEVEL  log level (debug, info, warn, error)
//
// The default file location is ~/.ollamachat/config.toml.
package config
