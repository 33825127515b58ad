// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the ollamachat command line.
//
// # Commands
//
//   - tui: interactive chat screen (default when no command is given)
//   - ask: send one message and stream the reply to stdout
//   - models: list the models installed on the server
//   - sessions: list saved conversations or print one
//   - version: print build information
//
// Persistent flags --config, --url and --model override the config file and
// the OLLAMACHAT_* environment variables.
//
// # Usage
//
//	os.Exit(cli.Execute())
package cli
