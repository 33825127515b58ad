// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ollamachat.
//
// # Key Functions
//
//   - AtomicWriteFileWithDir: crash-safe file writing with fsync and rename
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal cells
//   - SingleLine: collapses newlines for one-line previews
package util
