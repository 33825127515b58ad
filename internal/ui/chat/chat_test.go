// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ollamachat/internal/config"
	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/ollama"
	"github.com/jeranaias/ollamachat/internal/session"
	"github.com/jeranaias/ollamachat/internal/storage"
	"github.com/jeranaias/ollamachat/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeSource struct {
	names []string
	err   error
}

func (f fakeSource) ListModels(ctx context.Context) []string { return f.names }
func (f fakeSource) CheckRunning(ctx context.Context) error   { return f.err }

// chatHandler writes lines then, if block is set, holds the response open
// until the client goes away.
func chatHandler(block bool, lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		for _, line := range lines {
			io.WriteString(w, line+"\n")
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if block {
			<-r.Context().Done()
		}
	}
}

type harness struct {
	ctrl   *session.Controller
	copied []string
}

func newTestModel(t *testing.T, handler http.HandlerFunc) (Model, *harness) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctrl := session.NewController(session.ClientBackend{Client: client}, model.NewConversation(), session.DefaultConfig())
	t.Cleanup(ctrl.Close)

	store, err := storage.NewSessionStore(t.TempDir())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Ollama.Model = "llama3:8b"
	cfg.Chat.SystemPrompt = ""

	h := &harness{ctrl: ctrl}
	m := New(Options{
		Controller: ctrl,
		Models:     fakeSource{names: []string{"llama3:8b"}},
		Store:      store,
		Theme:      styles.NewThemeWithProfile(termenv.Ascii, true),
		Config:     cfg,
	})
	m.copyFn = func(s string) error {
		h.copied = append(h.copied, s)
		return nil
	}

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m = update(t, m, ModelsMsg{Names: []string{"llama3:8b", "mistral:7b"}})
	return m, h
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: k})
}

// nextEvent delivers the next controller event to m.
func nextEvent(t *testing.T, m Model) (Model, session.Event) {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- m.ctrl.ListenCmd()() }()

	select {
	case msg := <-ch:
		evMsg, ok := msg.(session.EventMsg)
		require.True(t, ok, "unexpected message %T", msg)
		return update(t, m, evMsg), evMsg.Event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
		return m, session.Event{}
	}
}

func drainCycle(t *testing.T, m Model) Model {
	t.Helper()
	for {
		var ev session.Event
		m, ev = nextEvent(t, m)
		if ev.Kind == session.EventEnd {
			return m
		}
	}
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_StreamsReply(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false,
		`{"message":{"content":"Hi"}}`,
		`{"message":{"content":" there"},"done":true,"eval_count":2,"eval_duration":1000000000}`,
	))

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)
	assert.True(t, m.IsStreaming())
	assert.Empty(t, m.input.Value())

	m = drainCycle(t, m)

	assert.Equal(t, "You:\nHello\n\nAI:\nHi there\n\n", m.Transcript())
	assert.False(t, m.IsStreaming())
	assert.Equal(t, statusSuccess, m.statusKind)
	assert.Contains(t, m.status, "2 chunks")
	assert.Contains(t, m.status, "2.0 tok/s")
	assert.Equal(t, []model.Message{
		model.NewUserMessage("Hello"),
		model.NewAssistantMessage("Hi there"),
	}, h.ctrl.Conversation().Messages())
}

func TestSend_NewlineKeysDoNotSend(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false))

	m = typeText(t, m, "a")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = typeText(t, m, "b")
	m = press(t, m, tea.KeyCtrlJ)
	m = typeText(t, m, "c")

	assert.Equal(t, "a\nb\nc", m.input.Value())
	assert.False(t, m.IsStreaming())
	assert.Zero(t, h.ctrl.Conversation().Len())
	assert.Empty(t, m.Transcript())
}

func TestSend_BlankInputIgnored(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false))

	m = typeText(t, m, "   ")
	m = press(t, m, tea.KeyEnter)

	assert.False(t, m.IsStreaming())
	assert.Zero(t, h.ctrl.Conversation().Len())
}

func TestSend_WithoutModel(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false))
	m = update(t, m, ModelsMsg{Names: []string{ollama.ModelsUnavailable}})
	assert.Equal(t, statusError, m.statusKind)

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)

	assert.False(t, m.IsStreaming())
	assert.Equal(t, statusError, m.statusKind)
	assert.Equal(t, "Hello", m.input.Value())
	assert.Zero(t, h.ctrl.Conversation().Len())
	assert.Empty(t, m.Transcript())
}

func TestSend_NormalisesParameterFields(t *testing.T) {
	m, _ := newTestModel(t, chatHandler(false, `{"done":true}`))
	m.temperature.SetValue("abc")
	m.maxTokens.SetValue("-5")

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)
	m = drainCycle(t, m)

	assert.Equal(t, "0", m.temperature.Value())
	assert.Equal(t, "1", m.maxTokens.Value())
}

func TestSend_SystemPromptFromField(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false, `{"done":true}`))
	m.systemPrompt.SetValue("  Be brief.  ")

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)
	drainCycle(t, m)

	assert.Equal(t, "Be brief.", h.ctrl.Conversation().SystemPrompt())
}

func TestCancel_LocksInputAndDiscardsPartial(t *testing.T) {
	m, h := newTestModel(t, chatHandler(true, `{"message":{"content":"Hi"}}`))

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)

	var ev session.Event
	for ev.Kind != session.EventToken {
		m, ev = nextEvent(t, m)
	}

	// Keys are ignored while streaming
	m = typeText(t, m, "x")
	assert.Empty(t, m.input.Value())
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, 1, h.ctrl.Conversation().Len())

	m = press(t, m, tea.KeyEsc)
	m = drainCycle(t, m)

	assert.False(t, m.IsStreaming())
	assert.Equal(t, "You:\nHello\n\nAI:\nHi\n[cancelled]\n\n", m.Transcript())
	assert.Equal(t, "Cancelled", m.status)
	assert.Equal(t, []model.Message{model.NewUserMessage("Hello")}, h.ctrl.Conversation().Messages())

	m = typeText(t, m, "again")
	assert.Equal(t, "again", m.input.Value())
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func TestClear(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false, `{"message":{"content":"Hi"},"done":true}`))
	m.systemPrompt.SetValue("Be brief.")

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)
	m = drainCycle(t, m)
	require.NotEmpty(t, m.Transcript())

	m = press(t, m, tea.KeyCtrlL)

	assert.Empty(t, m.Transcript())
	assert.Empty(t, m.systemPrompt.Value())
	assert.Zero(t, h.ctrl.Conversation().Len())
	assert.Empty(t, h.ctrl.Conversation().SystemPrompt())
}

func TestSaveAndLoad(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false, `{"message":{"content":"Hi"},"done":true}`))
	m.systemPrompt.SetValue("Be brief.")

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)
	m = drainCycle(t, m)

	// Save
	m = press(t, m, tea.KeyCtrlS)
	require.Equal(t, promptSave, m.prompt)
	m = typeText(t, m, "chat")
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, promptNone, m.prompt)

	saved, ok := cmd().(SavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.Err)
	m = update(t, m, saved)
	assert.Equal(t, statusSuccess, m.statusKind)

	// Wipe and load it back
	m = press(t, m, tea.KeyCtrlL)
	require.Empty(t, m.Transcript())

	m = press(t, m, tea.KeyCtrlO)
	require.Equal(t, promptLoad, m.prompt)
	m = typeText(t, m, "chat.json")
	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	loaded, ok := cmd().(LoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	m = update(t, m, loaded)

	assert.Equal(t, "You:\nHello\n\nAI:\nHi\n\n", m.Transcript())
	assert.Equal(t, "Be brief.", m.systemPrompt.Value())
	assert.Equal(t, "Be brief.", h.ctrl.Conversation().SystemPrompt())
	assert.Equal(t, 2, h.ctrl.Conversation().Len())
}

func TestLoad_ErrorKeepsConversation(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false))
	h.ctrl.Conversation().AppendUser("keep me")

	m = update(t, m, LoadedMsg{Path: "x.json", Err: storage.ErrMalformed})

	assert.Equal(t, statusError, m.statusKind)
	assert.Equal(t, 1, h.ctrl.Conversation().Len())
}

func TestPrompt_EscCloses(t *testing.T) {
	m, _ := newTestModel(t, chatHandler(false))

	m = press(t, m, tea.KeyCtrlS)
	require.Equal(t, promptSave, m.prompt)
	m = press(t, m, tea.KeyEsc)

	assert.Equal(t, promptNone, m.prompt)
}

func TestCopyLastReply(t *testing.T) {
	m, h := newTestModel(t, chatHandler(false, `{"message":{"content":"Hi there"},"done":true}`))

	_, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Nil(t, cmd)

	m = typeText(t, m, "Hello")
	m = press(t, m, tea.KeyEnter)
	m = drainCycle(t, m)

	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Equal(t, []string{"Hi there"}, h.copied)
	assert.Equal(t, statusSuccess, m.statusKind)

	m.copyFn = func(string) error { return errors.New("no clipboard") }
	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	m = update(t, m, cmd())
	assert.Equal(t, statusError, m.statusKind)
}

// =============================================================================
// LAYOUT AND MODELS
// =============================================================================

func TestModelCycling(t *testing.T) {
	m, _ := newTestModel(t, chatHandler(false))
	assert.Equal(t, "llama3:8b", m.SelectedModel())

	m = press(t, m, tea.KeyCtrlN)
	assert.Equal(t, "mistral:7b", m.SelectedModel())
	m = press(t, m, tea.KeyCtrlN)
	assert.Equal(t, "llama3:8b", m.SelectedModel())
	m = press(t, m, tea.KeyCtrlB)
	assert.Equal(t, "mistral:7b", m.SelectedModel())
}

func TestFocusCycling(t *testing.T) {
	m, _ := newTestModel(t, chatHandler(false))
	require.Equal(t, focusInput, m.focus)

	m = press(t, m, tea.KeyTab)
	assert.Equal(t, focusSystem, m.focus)
	m = press(t, m, tea.KeyTab)
	assert.Equal(t, focusTemperature, m.focus)

	// Enter in a parameter field returns to the input
	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, focusInput, m.focus)

	m = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, focusMaxTokens, m.focus)
}

func TestResize(t *testing.T) {
	m, _ := newTestModel(t, chatHandler(false))

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 40-chromeHeight, m.viewport.Height)

	m = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	assert.Equal(t, 3, m.viewport.Height)
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t, chatHandler(false))
	m = update(t, m, OllamaStatusMsg{Running: false, Err: errors.New("refused")})

	view := m.View()
	assert.Contains(t, view, "ollamachat")
	assert.Contains(t, view, "llama3:8b")
	assert.Contains(t, view, "(1/2)")
	assert.Contains(t, view, "offline")
}

func TestFormatStats(t *testing.T) {
	assert.Equal(t, "Done", formatStats(session.Event{Kind: session.EventEnd}))

	got := formatStats(session.Event{
		Kind:  session.EventEnd,
		Stats: &session.Stats{Chunks: 0, Duration: 1500 * time.Millisecond},
	})
	assert.Equal(t, "Done: 0 chunks · 1.5s · empty reply dropped", got)
}
