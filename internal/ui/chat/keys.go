// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Send      key.Binding
	Newline   key.Binding
	NextField key.Binding
	PrevField key.Binding
	NextModel key.Binding
	PrevModel key.Binding
	Refresh   key.Binding
	Clear     key.Binding
	Save      key.Binding
	Load      key.Binding
	Cancel    key.Binding
	Copy      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		// Terminals cannot tell shift+enter from enter
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter/C-j", "newline"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev field"),
		),
		NextModel: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "next model"),
		),
		PrevModel: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "prev model"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reload models"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save"),
		),
		Load: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "load"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Newline, k.NextModel, k.Cancel, k.Help, k.Quit}
}

// FullHelp returns all bindings in groups.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Newline, k.Cancel, k.Copy},
		{k.NextField, k.PrevField, k.PageUp, k.PageDown},
		{k.NextModel, k.PrevModel, k.Refresh},
		{k.Clear, k.Save, k.Load, k.Help, k.Quit},
	}
}
