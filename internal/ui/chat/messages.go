// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/ollamachat/internal/model"

// ModelsMsg delivers the model list.
type ModelsMsg struct {
	Names []string
}

// OllamaStatusMsg reports the result of a health check.
type OllamaStatusMsg struct {
	Running bool
	Err     error
}

// SavedMsg reports a finished save.
type SavedMsg struct {
	Path string
	Err  error
}

// LoadedMsg delivers a document read from disk.
type LoadedMsg struct {
	Path string
	Doc  model.PersistedSession
	Err  error
}

// CopiedMsg reports a clipboard write.
type CopiedMsg struct {
	Chars int
	Err   error
}
