// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "github.com/jeranaias/ollamachat/internal/ollama"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the transcript label for the role. Anything that is
// not the user is shown as the model.
func (r Role) DisplayName() string {
	if r == RoleUser {
		return "You"
	}
	return "AI"
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation. Messages are values and are
// never modified after they are appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return m.Content == ""
}

// ToOllama converts the message to its wire form.
func (m Message) ToOllama() ollama.Message {
	return ollama.Message{Role: string(m.Role), Content: m.Content}
}

// ToOllamaMessages converts a payload to wire messages.
func ToOllamaMessages(msgs []Message) []ollama.Message {
	out := make([]ollama.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.ToOllama()
	}
	return out
}
