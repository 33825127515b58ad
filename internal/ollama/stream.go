// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// =============================================================================
// CHAT STREAM
// =============================================================================

// ChatStream is a lazy, forward-only sequence of chunks from a streaming
// chat response. The body is newline-delimited JSON, one object per line.
//
// After a chunk with done:true, or after any error, the body is closed and
// every later Next returns io.EOF without touching the network. The idle
// timeout, when set, runs only while Next is waiting on the body, so time
// the caller spends between calls never counts.
// A ChatStream cannot be restarted; open a new one.
//
// Next must not be called concurrently. Close may be called from any goroutine.
type ChatStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	reader *bufio.Reader

	idle     time.Duration
	timer    *time.Timer
	timedOut atomic.Bool

	finished  bool
	model     string
	closeOnce sync.Once
}

func newChatStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, idle time.Duration) *ChatStream {
	s := &ChatStream{
		ctx:    ctx,
		cancel: cancel,
		body:   body,
		reader: bufio.NewReader(body),
		idle:   idle,
	}
	if idle > 0 {
		s.timer = time.AfterFunc(idle, func() {
			s.timedOut.Store(true)
			s.cancel()
		})
		s.timer.Stop()
	}
	return s
}

// Next returns the next chunk. It returns io.EOF when the stream has ended,
// either after the final chunk or because the body ended without one.
func (s *ChatStream) Next() (StreamChunk, error) {
	if s.finished {
		return StreamChunk{}, io.EOF
	}
	if s.timer != nil {
		s.timer.Reset(s.idle)
		defer s.timer.Stop()
	}

	for {
		line, readErr := s.reader.ReadBytes('\n')
		if len(line) > 0 && s.timer != nil {
			s.timer.Reset(s.idle)
		}

		// Skip blank keep-alive lines
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			chunk, err := s.parseLine(trimmed)
			if err != nil {
				s.finish()
				return StreamChunk{}, err
			}
			if chunk.Done {
				s.finish()
			}
			return chunk, nil
		}

		if readErr != nil {
			// Classify before finish, which cancels the context itself
			var err error = io.EOF
			if !errors.Is(readErr, io.EOF) || s.ctx.Err() != nil {
				err = s.readError(readErr)
			}
			s.finish()
			return StreamChunk{}, err
		}
	}
}

// Close aborts the request and releases the response body. It is safe to
// call more than once.
func (s *ChatStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func (s *ChatStream) finish() {
	s.finished = true
	s.Close()
}

// parseLine decodes one NDJSON line into a chunk.
func (s *ChatStream) parseLine(line []byte) (StreamChunk, error) {
	if !gjson.ValidBytes(line) {
		return StreamChunk{}, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "malformed stream line: " + truncateLine(line),
		}
	}

	res := gjson.ParseBytes(line)
	if !res.IsObject() {
		return StreamChunk{}, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "stream line is not a JSON object: " + truncateLine(line),
		}
	}

	// Ollama reports mid-stream failures as {"error": "..."}
	if errField := res.Get("error"); errField.Exists() {
		return StreamChunk{}, &ClientError{Type: ErrTypeInvalidResponse, Message: errField.String()}
	}

	if model := res.Get("model").String(); model != "" {
		s.model = model
	}

	chunk := StreamChunk{
		Content: res.Get("message.content").String(),
		Done:    res.Get("done").Bool(),
		Model:   s.model,
	}

	if chunk.Done {
		chunk.DoneReason = res.Get("done_reason").String()
		chunk.PromptTokens = int(res.Get("prompt_eval_count").Int())
		chunk.CompletionTokens = int(res.Get("eval_count").Int())
		chunk.TotalDuration = time.Duration(res.Get("total_duration").Int())
		chunk.EvalDuration = time.Duration(res.Get("eval_duration").Int())
	}

	return chunk, nil
}

// readError explains why reading the body failed.
func (s *ChatStream) readError(cause error) error {
	switch {
	case s.timedOut.Load():
		return &ClientError{Type: ErrTypeTimeout, Message: "stream idle for " + s.idle.String(), Cause: cause}
	case errors.Is(s.ctx.Err(), context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: cause}
	case s.ctx.Err() != nil:
		return &ClientError{Type: ErrTypeCanceled, Message: ErrCanceled.Message, Cause: cause}
	default:
		return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: cause}
	}
}

func truncateLine(line []byte) string {
	const maxLen = 80
	if len(line) > maxLen {
		return string(line[:maxLen]) + "..."
	}
	return string(line)
}
