// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sync"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered message history and the system prompt.
// The system prompt is stored apart from the history and only joins it when
// a request payload is built.
//
// Conversation is safe for concurrent use.
type Conversation struct {
	mu           sync.RWMutex
	messages     []Message
	systemPrompt string
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: make([]Message, 0)}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message to the end of the history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// AppendUser appends a user message and returns it.
func (c *Conversation) AppendUser(content string) Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// AppendAssistant appends an assistant message and returns it.
func (c *Conversation) AppendAssistant(content string) Message {
	msg := NewAssistantMessage(content)
	c.Append(msg)
	return msg
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// LastAssistant returns the most recent assistant message.
func (c *Conversation) LastAssistant() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// SetSystemPrompt replaces the system prompt.
func (c *Conversation) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
}

// SystemPrompt returns the current system prompt.
func (c *Conversation) SystemPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.systemPrompt
}

// Clear empties the history and the system prompt together.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]Message, 0)
	c.systemPrompt = ""
}

// =============================================================================
// REQUEST PAYLOAD
// =============================================================================

// BuildRequestPayload returns the messages to send: the system prompt first
// when it is non-empty, then the history. The result is a fresh slice.
//
// When a system prompt is set, a system message at the head of the stored
// history is left out so the payload never carries two.
func (c *Conversation) BuildRequestPayload() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := c.messages
	if c.systemPrompt == "" {
		out := make([]Message, len(history))
		copy(out, history)
		return out
	}

	if len(history) > 0 && history[0].Role == RoleSystem {
		history = history[1:]
	}
	out := make([]Message, 0, len(history)+1)
	out = append(out, NewSystemMessage(c.systemPrompt))
	return append(out, history...)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// PersistedSession is the document written to and read from disk.
type PersistedSession struct {
	SystemPrompt string    `json:"system_prompt"`
	Conversation []Message `json:"conversation"`
}

// ToPersisted snapshots the conversation as a document.
func (c *Conversation) ToPersisted() PersistedSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msgs := make([]Message, len(c.messages))
	copy(msgs, c.messages)
	return PersistedSession{SystemPrompt: c.systemPrompt, Conversation: msgs}
}

// FromPersisted replaces the whole conversation with the document's
// contents. Missing fields load as empty.
func (c *Conversation) FromPersisted(doc PersistedSession) {
	msgs := make([]Message, len(doc.Conversation))
	copy(msgs, doc.Conversation)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = msgs
	c.systemPrompt = doc.SystemPrompt
}
