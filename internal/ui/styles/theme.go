// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/ollamachat/internal/transcript"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// Header
	Brand      lipgloss.Style
	Label      lipgloss.Style
	ModelName  lipgloss.Style
	ModelError lipgloss.Style

	// Input fields
	Field        lipgloss.Style
	FieldFocused lipgloss.Style
	FieldLocked  lipgloss.Style

	// Transcript
	User  lipgloss.Style
	AI    lipgloss.Style
	Error lipgloss.Style
	Info  lipgloss.Style

	// Status line
	Status        lipgloss.Style
	StatusError   lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusBusy    lipgloss.Style
	Prompt        lipgloss.Style
}

// NewTheme detects the terminal's colour support and builds the styles.
func NewTheme() *Theme {
	output := termenv.NewOutput(os.Stdout)
	return NewThemeWithProfile(output.EnvColorProfile(), output.HasDarkBackground())
}

// NewThemeWithProfile builds the styles for a fixed colour profile.
// termenv.Ascii gives plain text.
func NewThemeWithProfile(profile termenv.Profile, isDark bool) *Theme {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
		renderer:     r,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	s := t.renderer.NewStyle

	t.Brand = s().Bold(true).Foreground(Cyan)
	t.Label = s().Foreground(TextSecondary)
	t.ModelName = s().Bold(true).Foreground(Cyan)
	t.ModelError = s().Bold(true).Foreground(Rose)

	t.Field = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)
	t.FieldFocused = t.Field.BorderForeground(Purple)
	t.FieldLocked = t.Field.BorderForeground(Amber)

	t.User = s().Foreground(UserRed)
	t.AI = s().Foreground(AIGreen)
	t.Error = s().Bold(true).Foreground(Rose)
	t.Info = s().Italic(true).Foreground(TextMuted)

	t.Status = s().Foreground(TextSecondary)
	t.StatusError = s().Foreground(Rose)
	t.StatusSuccess = s().Foreground(Emerald)
	t.StatusBusy = s().Foreground(Amber)
	t.Prompt = s().Bold(true).Foreground(Purple)
}

// Tag returns the transcript style for a tag.
func (t *Theme) Tag(tag transcript.Tag) lipgloss.Style {
	switch tag {
	case transcript.TagUser:
		return t.User
	case transcript.TagAI:
		return t.AI
	case transcript.TagError:
		return t.Error
	default:
		return t.Info
	}
}

// Styler adapts the theme for transcript.Buffer.Render.
func (t *Theme) Styler() transcript.Styler {
	return func(tag transcript.Tag, text string) string {
		return t.Tag(tag).Render(text)
	}
}
