// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs streaming request/response cycles against the
// conversation store.
//
// A Controller owns one cycle at a time. Send appends the user message,
// snapshots the request payload and streams the reply on a background
// goroutine. Progress is reported as Events on a single FIFO channel, one
// event per chunk, so a UI goroutine can apply them in arrival order.
//
// # Key Types
//
//   - Controller: state machine and single-slot guard for one cycle
//   - Event: UserMessage, Start, Token, Error and End notifications
//   - Backend: opens a chunk stream; ClientBackend wraps *ollama.Client
//   - EventMsg: Bubble Tea message carrying one Event
//
// # Cycle
//
//	Idle -> AwaitingFirstChunk -> Streaming -> Finalizing -> Idle
//
// Every cycle ends with exactly one End event. Start precedes the first
// Token and is emitted before End even when a successful stream yielded
// nothing.
// A failed or cancelled cycle emits Error before End and does not persist
// the partial reply.
//
// # Usage
//
//	ctrl := session.NewController(session.ClientBackend{Client: client}, conv, session.DefaultConfig())
//	defer ctrl.Close()
//
//	if err := ctrl.Send("Hello", params); err != nil {
//	    // ErrEmptyMessage, ErrBusy or model.ErrNoModel
//	}
//	for ev := range ctrl.Events() {
//	    renderer.Apply(ev)
//	    if ev.Kind == session.EventEnd {
//	        break
//	    }
//	}
package session
