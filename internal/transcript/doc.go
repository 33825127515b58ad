// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript turns controller events into display text.
//
// The Renderer is append-only: each event adds text to a Surface and nothing
// already written is redrawn. A user message arrives whole as
// "You:\n<content>\n\n"; a reply is written as "AI:\n", then each delta,
// then "\n\n".
//
// Buffer keeps tagged segments for the TUI, which styles them per tag.
// WriterSurface streams plain text to an io.Writer.
package transcript
