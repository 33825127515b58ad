// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/ollamachat/internal/ollama"
)

// Stream yields chunks until io.EOF.
type Stream interface {
	Next() (ollama.StreamChunk, error)
	Close() error
}

// Backend opens chat streams.
type Backend interface {
	OpenStream(ctx context.Context, req ollama.ChatRequest) (Stream, error)
}

// ClientBackend adapts an Ollama client to Backend.
type ClientBackend struct {
	Client *ollama.Client
}

// OpenStream starts a streaming chat request.
func (b ClientBackend) OpenStream(ctx context.Context, req ollama.ChatRequest) (Stream, error) {
	s, err := b.Client.ChatStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return s, nil
}
