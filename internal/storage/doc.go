// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage saves and loads conversation documents.
//
// A document is a UTF-8 JSON file of the form
//
//	{"system_prompt": "...", "conversation": [{"role": "...", "content": "..."}]}
//
// Relative paths resolve against the store's base directory, and a path with
// no extension gets ".json". Writes go through a temp file and rename.
//
// # Usage
//
//	store, err := storage.NewSessionStore(dir)
//	path, err := store.Save("standup", conv.ToPersisted())
//	doc, err := store.Load(path)
//
// # Storage Location
//
// Sessions default to ~/.ollamachat/sessions/.
package storage
