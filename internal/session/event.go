// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"time"

	"github.com/jeranaias/ollamachat/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the request cycle.
type State int32

const (
	StateIdle State = iota
	StateAwaitingFirstChunk
	StateStreaming
	StateFinalizing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "awaiting first chunk"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies an Event.
type EventKind int

const (
	// EventUserMessage carries the full user message just appended.
	EventUserMessage EventKind = iota
	// EventStart opens the assistant reply.
	EventStart
	// EventToken carries one chunk's text delta.
	EventToken
	// EventError reports why the cycle failed.
	EventError
	// EventEnd closes the cycle.
	EventEnd
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventUserMessage:
		return "user_message"
	case EventStart:
		return "start"
	case EventToken:
		return "token"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one notification from a cycle.
type Event struct {
	Kind    EventKind
	CycleID string
	Role    model.Role

	// Text is the message content for EventUserMessage and the delta for
	// EventToken. For EventEnd it is the full reply (empty after an error).
	Text string

	// Err is set on EventError and repeated on the closing EventEnd
	Err      error
	Canceled bool

	// Persisted reports whether EventEnd's reply was stored
	Persisted bool

	// Stats is only set on EventEnd
	Stats *Stats
}

// Failed returns true if the event belongs to a failed cycle.
func (e Event) Failed() bool {
	return e.Err != nil
}

// Stats summarises a finished cycle.
type Stats struct {
	// Model is the name the server reported, which may differ from the
	// requested alias
	Model            string
	Chunks           int
	PromptTokens     int
	CompletionTokens int
	TokensPerSecond  float64
	DoneReason       string
	TimeToFirstChunk time.Duration
	Duration         time.Duration
}
