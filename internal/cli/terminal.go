// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80
	MinTerminalWidth     = 40
)

// GetTerminalWidth returns the width of stdout, or DefaultTerminalWidth when
// it is not a terminal.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return max(width, MinTerminalWidth)
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsOn   bool
	colorsOnce sync.Once
)

// colorsEnabled reports whether CLI output should be styled. NO_COLOR wins
// over FORCE_COLOR, which wins over TTY detection.
func colorsEnabled() bool {
	colorsOnce.Do(func() {
		switch {
		case os.Getenv("NO_COLOR") != "":
			colorsOn = false
		case os.Getenv("FORCE_COLOR") != "":
			colorsOn = true
		default:
			colorsOn = IsStdoutTTY()
		}
	})
	return colorsOn
}

// colorProfile returns the profile for styled CLI output.
func colorProfile() termenv.Profile {
	if !colorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
