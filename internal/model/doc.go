// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation store and request parameters.
//
// # Key Types
//
//   - Conversation: ordered message history plus a separate system prompt
//   - Message: single immutable message with a role and content
//   - RequestParameters: model, temperature and token limit for one request
//   - PersistedSession: the on-disk shape of a saved conversation
//   - ModelSelector: cycling cursor over the models reported by the server
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.SetSystemPrompt("Answer briefly.")
//	conv.AppendUser("Hello")
//	payload := conv.BuildRequestPayload() // [system, user]
//
// Parse free-text parameter fields:
//
//	params, err := model.NewRequestParameters("llama3:8b", "0.7", "2048")
package model
