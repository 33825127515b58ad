// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// MODEL SELECTOR
// =============================================================================

// ModelSelector is the model picker state: the names reported by the server
// and the one currently selected. The zero value is an empty selector.
type ModelSelector struct {
	names []string
	index int
}

// NewModelSelector creates a selector over names. preferred is selected when
// present; otherwise the first entry is.
func NewModelSelector(names []string, preferred string) *ModelSelector {
	s := &ModelSelector{}
	s.SetNames(names, preferred)
	return s
}

// SetNames replaces the list. The selection is kept when the currently
// selected name is still present, else preferred, else the first entry.
func (s *ModelSelector) SetNames(names []string, preferred string) {
	current := s.Selected()
	s.names = append([]string(nil), names...)
	s.index = 0

	for _, want := range []string{current, preferred} {
		if want == "" {
			continue
		}
		for i, name := range s.names {
			if name == want {
				s.index = i
				return
			}
		}
	}
}

// Names returns a copy of the list.
func (s *ModelSelector) Names() []string {
	return append([]string(nil), s.names...)
}

// Selected returns the selected name, or "" when the list is empty.
func (s *ModelSelector) Selected() string {
	if len(s.names) == 0 {
		return ""
	}
	return s.names[s.index]
}

// Position returns the 1-based index of the selection and the list length.
func (s *ModelSelector) Position() (int, int) {
	if len(s.names) == 0 {
		return 0, 0
	}
	return s.index + 1, len(s.names)
}

// Next selects the following name, wrapping around.
func (s *ModelSelector) Next() string {
	if len(s.names) > 0 {
		s.index = (s.index + 1) % len(s.names)
	}
	return s.Selected()
}

// Prev selects the preceding name, wrapping around.
func (s *ModelSelector) Prev() string {
	if len(s.names) > 0 {
		s.index = (s.index - 1 + len(s.names)) % len(s.names)
	}
	return s.Selected()
}

// Usable reports whether the selection can be used for a request.
func (s *ModelSelector) Usable() bool {
	return UsableModel(s.Selected())
}
