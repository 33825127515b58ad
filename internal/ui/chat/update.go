// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/ollama"
	"github.com/jeranaias/ollamachat/internal/session"
	"github.com/jeranaias/ollamachat/internal/transcript"
	"github.com/jeranaias/ollamachat/internal/util"
)

// Update handles all Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case session.EventMsg:
		return m.handleEvent(msg.Event)

	case ModelsMsg:
		return m.handleModels(msg)

	case OllamaStatusMsg:
		running := msg.Running
		m.running = &running
		if !running && msg.Err != nil {
			m.log.Warn("ollama not reachable", zap.String("url", m.serverURL), zap.Error(msg.Err))
		}
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.log.Error("save failed", zap.Error(msg.Err))
			m.setStatus(statusError, "Save failed: "+msg.Err.Error())
			return m, nil
		}
		m.log.Info("conversation saved", zap.String("path", msg.Path))
		m.setStatus(statusSuccess, "Saved to "+msg.Path)
		return m, nil

	case LoadedMsg:
		return m.handleLoaded(msg)

	case CopiedMsg:
		if msg.Err != nil {
			m.setStatus(statusError, "Copy failed: "+msg.Err.Error())
			return m, nil
		}
		m.setStatus(statusSuccess, fmt.Sprintf("Copied reply to clipboard (%d chars)", msg.Chars))
		return m, nil

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and other widget messages
	return m.updateFocused(msg)
}

// =============================================================================
// RESIZE
// =============================================================================

// Fixed rows: header, system box (2 + border), input box (3 + border),
// status, help.
const chromeHeight = 1 + 4 + 5 + 1 + 1

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	inner := max(msg.Width-2, 10)
	m.systemPrompt.SetWidth(inner)
	m.input.SetWidth(inner)
	m.pathInput.Width = max(msg.Width-20, 10)
	m.help.Width = msg.Width

	m.viewport.Width = msg.Width
	m.viewport.Height = max(msg.Height-chromeHeight, 3)
	m.refreshViewport(true)
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.ctrl.Cancel()
		return m, tea.Quit
	}

	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.streaming && m.ctrl.Cancel() {
			m.setStatus(statusBusy, "Cancelling...")
		}
		return m, nil

	case key.Matches(msg, m.keys.Send) && m.focus == focusInput:
		return m.send()

	case key.Matches(msg, m.keys.Send) && (m.focus == focusTemperature || m.focus == focusMaxTokens):
		cmd := m.setFocus(focusInput)
		return m, cmd

	case key.Matches(msg, m.keys.NextField):
		cmd := m.setFocus((m.focus + 1) % focusCount)
		return m, cmd

	case key.Matches(msg, m.keys.PrevField):
		cmd := m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, cmd

	case key.Matches(msg, m.keys.NextModel):
		m.models.Next()
		return m, nil

	case key.Matches(msg, m.keys.PrevModel):
		m.models.Prev()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.setStatus(statusInfo, "Loading models...")
		return m, tea.Batch(m.fetchModels(), m.checkOllama())

	case key.Matches(msg, m.keys.Clear):
		return m.clear()

	case key.Matches(msg, m.keys.Save):
		return m.openPrompt(promptSave)

	case key.Matches(msg, m.keys.Load):
		return m.openPrompt(promptLoad)

	case key.Matches(msg, m.keys.Copy):
		return m.copyLastReply()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused widget. The input box ignores
// keys while a reply is streaming.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		if _, isKey := msg.(tea.KeyMsg); isKey && m.streaming {
			return m, nil
		}
		m.input, cmd = m.input.Update(msg)
	case focusSystem:
		m.systemPrompt, cmd = m.systemPrompt.Update(msg)
	case focusTemperature:
		m.temperature, cmd = m.temperature.Update(msg)
	case focusMaxTokens:
		m.maxTokens, cmd = m.maxTokens.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f focusField) tea.Cmd {
	m.focus = f
	m.input.Blur()
	m.systemPrompt.Blur()
	m.temperature.Blur()
	m.maxTokens.Blur()

	switch f {
	case focusSystem:
		return m.systemPrompt.Focus()
	case focusTemperature:
		return m.temperature.Focus()
	case focusMaxTokens:
		return m.maxTokens.Focus()
	default:
		if m.streaming {
			return nil
		}
		return m.input.Focus()
	}
}

// =============================================================================
// SEND
// =============================================================================

func (m Model) send() (tea.Model, tea.Cmd) {
	if m.streaming {
		m.setStatus(statusBusy, "Wait for the reply to finish (esc cancels)")
		return m, nil
	}

	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	params, err := model.NewRequestParameters(m.models.Selected(), m.temperature.Value(), m.maxTokens.Value())
	if err != nil {
		m.setStatus(statusError, "No model available; check Ollama and press ctrl+r")
		return m, nil
	}

	// Show the values actually used
	m.temperature.SetValue(strconv.FormatFloat(params.Temperature, 'f', -1, 64))
	m.maxTokens.SetValue(strconv.Itoa(params.MaxTokens))

	m.ctrl.Conversation().SetSystemPrompt(strings.TrimSpace(m.systemPrompt.Value()))

	if err := m.ctrl.Send(text, params); err != nil {
		if errors.Is(err, session.ErrEmptyMessage) {
			return m, nil
		}
		m.setStatus(statusError, err.Error())
		return m, nil
	}

	m.streaming = true
	m.input.Reset()
	m.input.Blur()
	m.focus = focusInput
	m.setStatus(statusBusy, "Waiting for "+params.Model+"...")
	return m, m.spinner.Tick
}

// =============================================================================
// CONTROLLER EVENTS
// =============================================================================

func (m Model) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	m.renderer.Apply(ev)
	m.refreshViewport(m.streaming || ev.Kind == session.EventUserMessage)

	cmds := []tea.Cmd{m.ctrl.ListenCmd()}

	switch ev.Kind {
	case session.EventStart:
		m.setStatus(statusBusy, "Receiving reply...")

	case session.EventError:
		if ev.Canceled {
			m.setStatus(statusInfo, "Cancelled")
		} else {
			m.setStatus(statusError, util.SingleLine(transcript.ErrorText(ev)))
		}

	case session.EventEnd:
		m.streaming = false
		m.refreshViewport(true)
		cmds = append(cmds, m.setFocus(focusInput))
		if !ev.Failed() {
			m.setStatus(statusSuccess, formatStats(ev))
		}
	}

	return m, tea.Batch(cmds...)
}

// =============================================================================
// MODELS
// =============================================================================

func (m Model) handleModels(msg ModelsMsg) (tea.Model, tea.Cmd) {
	m.models.SetNames(msg.Names, m.preferredModel)

	switch {
	case len(msg.Names) == 0:
		m.setStatus(statusError, "No models installed; run `ollama pull <model>`")
	case !m.models.Usable():
		m.setStatus(statusError, ollama.ModelsUnavailable+" from "+m.serverURL)
	default:
		_, total := m.models.Position()
		m.setStatus(statusInfo, fmt.Sprintf("%d models available", total))
	}
	return m, nil
}

// =============================================================================
// CLEAR / SAVE / LOAD / COPY
// =============================================================================

func (m Model) clear() (tea.Model, tea.Cmd) {
	if err := m.ctrl.Clear(); err != nil {
		m.setStatus(statusError, "Cannot clear: "+err.Error())
		return m, nil
	}
	m.renderer.Clear()
	m.systemPrompt.Reset()
	m.refreshViewport(true)
	m.setStatus(statusInfo, "Conversation cleared")
	return m, nil
}

func (m Model) openPrompt(mode promptMode) (tea.Model, tea.Cmd) {
	if m.store == nil {
		m.setStatus(statusError, "No sessions directory configured")
		return m, nil
	}
	if mode == promptLoad && m.streaming {
		m.setStatus(statusBusy, "Cannot load while a reply is streaming")
		return m, nil
	}

	m.prompt = mode
	m.pathInput.Reset()
	if mode == promptSave {
		m.pathInput.Prompt = "Save as: "
	} else {
		m.pathInput.Prompt = "Load: "
		if metas, err := m.store.List(); err == nil && len(metas) > 0 {
			m.pathInput.Placeholder = metas[0].Name + ".json"
		}
	}
	cmd := m.pathInput.Focus()
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		cmd := m.setFocus(m.focus)
		return m, cmd

	case tea.KeyEnter:
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			path = m.pathInput.Placeholder
		}
		mode := m.prompt
		m.closePrompt()
		if path == "" {
			m.setStatus(statusInfo, "No file name given")
			return m, nil
		}

		if mode == promptSave {
			doc := m.ctrl.Conversation().ToPersisted()
			doc.SystemPrompt = strings.TrimSpace(m.systemPrompt.Value())
			m.setStatus(statusInfo, "Saving...")
			return m, m.saveCmd(path, doc)
		}
		m.setStatus(statusInfo, "Loading...")
		return m, m.loadCmd(path)
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.pathInput.Blur()
	m.pathInput.Placeholder = ""
}

func (m Model) handleLoaded(msg LoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Error("load failed", zap.String("path", msg.Path), zap.Error(msg.Err))
		m.setStatus(statusError, "Load failed: "+util.SingleLine(msg.Err.Error()))
		return m, nil
	}
	if err := m.ctrl.Load(msg.Doc); err != nil {
		m.setStatus(statusError, "Cannot load: "+err.Error())
		return m, nil
	}

	m.renderer.Replay(m.ctrl.Conversation().Messages())
	m.systemPrompt.SetValue(msg.Doc.SystemPrompt)
	m.refreshViewport(true)
	m.setStatus(statusSuccess, fmt.Sprintf("Loaded %d messages from %s", len(msg.Doc.Conversation), msg.Path))
	return m, nil
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	reply, ok := m.ctrl.Conversation().LastAssistant()
	if !ok || reply.IsEmpty() {
		m.setStatus(statusInfo, "No reply to copy")
		return m, nil
	}
	return m, m.copyCmd(reply.Content)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// refreshViewport re-renders the transcript, following the tail when
// follow is set or the view was already at the bottom.
func (m *Model) refreshViewport(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.buffer.Render(m.viewport.Width, m.theme.Styler()))
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func formatStats(ev session.Event) string {
	if ev.Stats == nil {
		return "Done"
	}
	s := ev.Stats
	parts := []string{fmt.Sprintf("%d chunks", s.Chunks)}
	if s.CompletionTokens > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", s.CompletionTokens))
	}
	if s.TokensPerSecond > 0 {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", s.TokensPerSecond))
	}
	parts = append(parts, s.Duration.Round(100*time.Millisecond).String())
	if !ev.Persisted {
		parts = append(parts, "empty reply dropped")
	}
	return "Done: " + strings.Join(parts, " · ")
}
