// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollamachat/internal/util"
)

// View renders the chat screen.
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderField(m.systemPrompt.View(), m.focus == focusSystem, false),
		m.viewport.View(),
		m.renderField(m.input.View(), m.focus == focusInput, m.streaming),
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderHeader() string {
	t := m.theme

	modelStyle := t.ModelName
	if !m.models.Usable() {
		modelStyle = t.ModelError
	}
	name := m.models.Selected()
	if name == "" {
		name = "no models"
	}
	modelText := modelStyle.Render(name)
	if pos, total := m.models.Position(); total > 1 {
		modelText += t.Label.Render(fmt.Sprintf(" (%d/%d)", pos, total))
	}

	server := ""
	if m.running != nil && !*m.running {
		server = t.StatusError.Render("  offline")
	}

	line := t.Brand.Render("ollamachat") + "  " +
		t.Label.Render("Model: ") + modelText + server + "  " +
		t.Label.Render("Temp: ") + m.renderInline(m.temperature.View(), m.focus == focusTemperature) + "  " +
		t.Label.Render("Max tokens: ") + m.renderInline(m.maxTokens.View(), m.focus == focusMaxTokens)

	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m Model) renderInline(view string, focused bool) string {
	if focused {
		return m.theme.Prompt.Render("[") + view + m.theme.Prompt.Render("]")
	}
	return view
}

func (m Model) renderField(view string, focused, locked bool) string {
	style := m.theme.Field
	switch {
	case locked:
		style = m.theme.FieldLocked
	case focused:
		style = m.theme.FieldFocused
	}
	return style.Width(max(m.width-2, 10)).Render(view)
}

func (m Model) renderStatus() string {
	if m.prompt != promptNone {
		return m.theme.Prompt.Render(m.pathInput.View())
	}

	t := m.theme
	text := util.TruncateWidth(m.status, max(m.width-3, 10))
	switch m.statusKind {
	case statusError:
		return t.StatusError.Render(text)
	case statusSuccess:
		return t.StatusSuccess.Render(text)
	case statusBusy:
		if m.streaming {
			return m.spinner.View() + " " + t.StatusBusy.Render(text)
		}
		return t.StatusBusy.Render(text)
	default:
		return t.Status.Render(text)
	}
}
