// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message on the wire.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`             // Model name (e.g., "llama3:8b")
	Messages []Message `json:"messages"`          // System prompt + conversation history
	Stream   bool      `json:"stream"`            // Always true for ChatStream
	Options  *Options  `json:"options,omitempty"` // Sampling parameters
}

// Options contains model parameters for inference. Both fields are always
// sent so that a temperature of 0 is not mistaken for "use the model default".
type Options struct {
	Temperature float64 `json:"temperature"` // 0.0-1.0 in this client
	NumPredict  int     `json:"num_predict"` // Max tokens to generate
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ModelInfo contains information about a locally available model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// OllamaError is the error body Ollama returns on failure.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single line of a streaming chat response.
type StreamChunk struct {
	// Content is the text delta carried by this chunk (may be empty)
	Content string

	// Done marks the final chunk; the stream yields nothing after it
	Done       bool
	DoneReason string

	// Model reported by the server
	Model string

	// Statistics (only populated on the final chunk)
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
	EvalDuration     time.Duration
}

// TokensPerSecond calculates the generation speed from a final chunk.
func (c StreamChunk) TokensPerSecond() float64 {
	if c.EvalDuration <= 0 {
		return 0
	}
	return float64(c.CompletionTokens) / c.EvalDuration.Seconds()
}

// =============================================================================
// HELPER METHODS
// =============================================================================

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case m.Size >= GB:
		return formatOneDecimal(float64(m.Size)/GB) + " GB"
	case m.Size >= MB:
		return formatOneDecimal(float64(m.Size)/MB) + " MB"
	case m.Size >= KB:
		return formatOneDecimal(float64(m.Size)/KB) + " KB"
	default:
		return formatOneDecimal(float64(m.Size)) + " B"
	}
}
