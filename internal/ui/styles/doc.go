// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colours and lipgloss styles for the TUI.
//
// Colours are lipgloss AdaptiveColors so light and dark terminals both read
// well. A Theme binds them to a renderer whose colour profile is detected
// with termenv, or fixed for tests.
//
//	theme := styles.NewTheme()
//	fmt.Println(theme.Tag(transcript.TagUser).Render("You:"))
package styles
