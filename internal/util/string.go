// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateRunes truncates s to at most maxRunes characters, replacing the
// tail with "..." when anything was cut.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateWidth truncates s to fit maxWidth terminal cells. Wide (CJK)
// characters count as two cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// SingleLine replaces line breaks with spaces so s fits on one status line.
func SingleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}

// WrapText wraps text to maxWidth terminal cells, preferring to break at
// spaces. Existing line breaks are kept.
func WrapText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return text
	}

	var result strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			result.WriteByte('\n')
		}

		runes := []rune(line)
		for runewidth.StringWidth(string(runes)) > maxWidth {
			width, cut := 0, 0
			for cut < len(runes) {
				w := runewidth.RuneWidth(runes[cut])
				if width+w > maxWidth {
					break
				}
				width += w
				cut++
			}
			if cut == 0 {
				cut = 1
			}

			breakPoint := cut
			for j := min(cut, len(runes)-1); j > 0; j-- {
				if runes[j] == ' ' {
					breakPoint = j
					break
				}
			}

			result.WriteString(string(runes[:breakPoint]))
			result.WriteByte('\n')
			runes = []rune(strings.TrimLeft(string(runes[breakPoint:]), " "))
		}
		result.WriteString(string(runes))
	}
	return result.String()
}
