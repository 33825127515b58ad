// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/ollama"
)

var (
	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned while a cycle is in flight.
	ErrBusy = errors.New("a response is still streaming")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds controller options.
type Config struct {
	// EventBuffer is the capacity of the event channel (default: 256)
	EventBuffer int

	// PersistEmptyResponses stores a reply with no text as an empty
	// assistant message instead of dropping it (default: true)
	PersistEmptyResponses bool

	// Logger receives cycle diagnostics (default: no-op)
	Logger *zap.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		EventBuffer:           256,
		PersistEmptyResponses: true,
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives one request/response cycle at a time.
//
// The events channel must be drained; a cycle blocks on a full channel.
type Controller struct {
	backend Backend
	conv    *model.Conversation
	cfg     Config
	log     *zap.Logger

	events chan Event
	quit   chan struct{}

	// busy is the single-slot guard; a cycle holds it from Send until End
	busy  atomic.Bool
	state atomic.Int32

	mu      sync.Mutex
	cycleID string
	cancel  context.CancelFunc
	done    chan struct{}
	// dones holds the done channel of every cycle that has not returned
	dones map[string]chan struct{}

	closeOnce sync.Once
}

// NewController creates an idle controller writing to conv.
func NewController(backend Backend, conv *model.Conversation, cfg Config) *Controller {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	close(done)

	return &Controller{
		backend: backend,
		conv:    conv,
		cfg:     cfg,
		log:     logger.Named("session"),
		events:  make(chan Event, cfg.EventBuffer),
		quit:    make(chan struct{}),
		done:    done,
		dones:   make(map[string]chan struct{}),
	}
}

// Events returns the channel every cycle reports on.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Conversation returns the store the controller writes to.
func (c *Controller) Conversation() *model.Conversation {
	return c.conv
}

// State returns the current cycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Busy returns true while a cycle holds the guard.
func (c *Controller) Busy() bool {
	return c.busy.Load()
}

// CycleID returns the ID of the current or most recent cycle.
func (c *Controller) CycleID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycleID
}

// =============================================================================
// CYCLE CONTROL
// =============================================================================

// Send starts a cycle for text. The user message is appended and its
// EventUserMessage emitted before Send returns; the reply streams in the
// background. Blank text returns ErrEmptyMessage and an unusable model
// returns model.ErrNoModel, both without side effects.
func (c *Controller) Send(text string, params model.RequestParameters) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !model.UsableModel(params.Model) {
		return model.ErrNoModel
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cycleID = id
	c.cancel = cancel
	c.done = done
	c.dones[id] = done
	c.mu.Unlock()

	c.conv.AppendUser(text)
	c.setState(StateAwaitingFirstChunk)
	c.emit(Event{Kind: EventUserMessage, CycleID: id, Role: model.RoleUser, Text: text})

	req := ollama.ChatRequest{
		Model:    params.Model,
		Messages: model.ToOllamaMessages(c.conv.BuildRequestPayload()),
		Options:  params.Options(),
	}

	c.log.Info("cycle started",
		zap.String("cycle", id),
		zap.String("model", params.Model),
		zap.Float64("temperature", params.Temperature),
		zap.Int("max_tokens", params.MaxTokens),
		zap.Int("messages", len(req.Messages)))

	go c.run(ctx, cancel, done, id, req)
	return nil
}

// Cancel aborts the cycle in flight. It returns false when idle.
func (c *Controller) Cancel() bool {
	if !c.busy.Load() {
		return false
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Wait blocks until the current cycle, if any, has released the guard.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	<-done
}

// WaitCycle blocks until the cycle with the given ID has released the
// guard. It returns at once for an unknown or finished cycle, so a reader
// holding an older End never waits on a cycle started after it.
func (c *Controller) WaitCycle(id string) {
	c.mu.Lock()
	done, ok := c.dones[id]
	c.mu.Unlock()
	if ok {
		<-done
	}
}

// Clear empties the conversation and its system prompt. It returns ErrBusy
// while a cycle is in flight.
func (c *Controller) Clear() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)
	c.conv.Clear()
	c.log.Info("conversation cleared")
	return nil
}

// Load replaces the conversation with doc. It returns ErrBusy while a cycle
// is in flight.
func (c *Controller) Load(doc model.PersistedSession) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)
	c.conv.FromPersisted(doc)
	c.log.Info("conversation loaded", zap.Int("messages", len(doc.Conversation)))
	return nil
}

// Close cancels any cycle, waits for it and stops event delivery.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.Cancel()
		close(c.quit)
		c.Wait()
	})
}

// =============================================================================
// CYCLE
// =============================================================================

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, id string, req ollama.ChatRequest) {
	defer func() {
		close(done)
		c.mu.Lock()
		delete(c.dones, id)
		c.mu.Unlock()
	}()
	defer cancel()

	log := c.log.With(zap.String("cycle", id))
	started := time.Now()
	stats := &Stats{}

	var reply strings.Builder
	startEmitted := false
	start := func() {
		if startEmitted {
			return
		}
		startEmitted = true
		stats.TimeToFirstChunk = time.Since(started)
		c.setState(StateStreaming)
		c.emit(Event{Kind: EventStart, CycleID: id, Role: model.RoleAssistant})
	}

	err := c.consume(ctx, req, func(chunk ollama.StreamChunk) {
		stats.Chunks++
		if chunk.Model != "" {
			stats.Model = chunk.Model
		}
		start()
		if chunk.Content != "" {
			reply.WriteString(chunk.Content)
			c.emit(Event{Kind: EventToken, CycleID: id, Role: model.RoleAssistant, Text: chunk.Content})
		}
		if chunk.Done {
			stats.DoneReason = chunk.DoneReason
			stats.PromptTokens = chunk.PromptTokens
			stats.CompletionTokens = chunk.CompletionTokens
			stats.TokensPerSecond = chunk.TokensPerSecond()
		}
	})

	c.setState(StateFinalizing)
	stats.Duration = time.Since(started)

	if err != nil {
		canceled := ollama.IsCanceled(err) || errors.Is(err, context.Canceled)
		if canceled {
			log.Info("cycle canceled", zap.Int("chunks", stats.Chunks))
		} else {
			log.Warn("cycle failed", zap.Int("chunks", stats.Chunks), zap.Error(err))
		}
		c.emit(Event{Kind: EventError, CycleID: id, Role: model.RoleAssistant, Err: err, Canceled: canceled})
		c.finish(Event{Kind: EventEnd, CycleID: id, Role: model.RoleAssistant, Err: err, Canceled: canceled, Stats: stats})
		return
	}

	start()
	text := reply.String()
	persisted := text != "" || c.cfg.PersistEmptyResponses
	if persisted {
		c.conv.AppendAssistant(text)
	}

	log.Info("cycle finished",
		zap.String("reported_model", stats.Model),
		zap.Int("chunks", stats.Chunks),
		zap.Int("chars", len(text)),
		zap.Bool("persisted", persisted),
		zap.Duration("duration", stats.Duration))

	c.finish(Event{Kind: EventEnd, CycleID: id, Role: model.RoleAssistant, Text: text, Persisted: persisted, Stats: stats})
}

// consume opens the stream and hands each chunk to fn until the final
// chunk or EOF.
func (c *Controller) consume(ctx context.Context, req ollama.ChatRequest, fn func(ollama.StreamChunk)) error {
	stream, err := c.backend.OpenStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fn(chunk)
		if chunk.Done {
			return nil
		}
	}
}

// finish emits End and returns the controller to Idle.
func (c *Controller) finish(end Event) {
	c.emit(end)
	c.setState(StateIdle)
	c.busy.Store(false)
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// emit queues ev, giving up only once the controller is closed.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}
