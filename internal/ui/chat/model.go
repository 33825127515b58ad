// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strconv"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/ollamachat/internal/config"
	"github.com/jeranaias/ollamachat/internal/model"
	"github.com/jeranaias/ollamachat/internal/session"
	"github.com/jeranaias/ollamachat/internal/storage"
	"github.com/jeranaias/ollamachat/internal/transcript"
	"github.com/jeranaias/ollamachat/internal/ui/styles"
)

// ModelSource lists models and checks the server. *ollama.Client
// satisfies it.
type ModelSource interface {
	ListModels(ctx context.Context) []string
	CheckRunning(ctx context.Context) error
}

// =============================================================================
// CHAT STATE
// =============================================================================

type focusField int

const (
	focusInput focusField = iota
	focusSystem
	focusTemperature
	focusMaxTokens
	focusCount
)

type promptMode int

const (
	promptNone promptMode = iota
	promptSave
	promptLoad
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
	statusBusy
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options wires the chat model to the rest of the application.
type Options struct {
	Controller *session.Controller
	Models     ModelSource
	Store      *storage.SessionStore
	Theme      *styles.Theme
	Config     *config.Config
	Logger     *zap.Logger
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl    *session.Controller
	source  ModelSource
	store   *storage.SessionStore
	theme   *styles.Theme
	log     *zap.Logger
	timeout time.Duration

	// Model selection
	models         *model.ModelSelector
	preferredModel string
	serverURL      string
	running        *bool

	// Input widgets
	systemPrompt textarea.Model
	temperature  textinput.Model
	maxTokens    textinput.Model
	input        textarea.Model
	pathInput    textinput.Model

	// Display
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	buffer   *transcript.Buffer
	renderer *transcript.Renderer

	// State
	focus      focusField
	prompt     promptMode
	streaming  bool
	status     string
	statusKind statusKind

	// Dimensions
	width  int
	height int

	copyFn func(string) error
}

// New creates the chat model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	system := textarea.New()
	system.Placeholder = "System prompt (optional)"
	system.ShowLineNumbers = false
	system.CharLimit = 0
	system.SetHeight(2)
	system.SetValue(cfg.Chat.SystemPrompt)
	system.Blur()

	temp := textinput.New()
	temp.Prompt = ""
	temp.CharLimit = 8
	temp.Width = 5
	temp.SetValue(strconv.FormatFloat(cfg.Chat.Temperature, 'f', 1, 64))

	maxTok := textinput.New()
	maxTok.Prompt = ""
	maxTok.CharLimit = 9
	maxTok.Width = 7
	maxTok.SetValue(strconv.Itoa(cfg.Chat.MaxTokens))

	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(3)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	path := textinput.New()
	path.CharLimit = 1024

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.StatusBusy

	buf := transcript.NewBuffer()

	return Model{
		ctrl:           opts.Controller,
		source:         opts.Models,
		store:          opts.Store,
		theme:          theme,
		log:            logger.Named("ui"),
		timeout:        cfg.RequestTimeout(),
		models:         model.NewModelSelector(nil, cfg.Ollama.Model),
		preferredModel: cfg.Ollama.Model,
		serverURL:      cfg.Ollama.URL,
		systemPrompt:   system,
		temperature:    temp,
		maxTokens:      maxTok,
		input:          input,
		pathInput:      path,
		viewport:       viewport.New(80, 10),
		spinner:        spin,
		help:           help.New(),
		keys:           DefaultKeyMap(),
		buffer:         buf,
		renderer:       transcript.NewRenderer(buf),
		focus:          focusInput,
		status:         "Loading models...",
		width:          80,
		height:         24,
		copyFn:         clipboard.WriteAll,
	}
}

// Init starts the event listener and the first model fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.ctrl.ListenCmd(),
		m.fetchModels(),
		m.checkOllama(),
		textarea.Blink,
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) requestContext() (context.Context, context.CancelFunc) {
	timeout := m.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// fetchModels loads the model list. ListModels reports failure as a
// placeholder entry rather than an error.
func (m Model) fetchModels() tea.Cmd {
	source := m.source
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		if source == nil {
			return ModelsMsg{}
		}
		return ModelsMsg{Names: source.ListModels(ctx)}
	}
}

func (m Model) checkOllama() tea.Cmd {
	source := m.source
	ctx, cancel := m.requestContext()
	return func() tea.Msg {
		defer cancel()
		if source == nil {
			return OllamaStatusMsg{}
		}
		err := source.CheckRunning(ctx)
		return OllamaStatusMsg{Running: err == nil, Err: err}
	}
}

func (m Model) saveCmd(path string, doc model.PersistedSession) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		written, err := store.Save(path, doc)
		return SavedMsg{Path: written, Err: err}
	}
}

func (m Model) loadCmd(path string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		doc, err := store.Load(path)
		return LoadedMsg{Path: path, Doc: doc, Err: err}
	}
}

func (m Model) copyCmd(text string) tea.Cmd {
	copyFn := m.copyFn
	return func() tea.Msg {
		return CopiedMsg{Chars: len([]rune(text)), Err: copyFn(text)}
	}
}

// =============================================================================
// GETTERS
// =============================================================================

// IsStreaming returns true while a reply is being received.
func (m Model) IsStreaming() bool {
	return m.streaming
}

// Transcript returns the plain transcript text.
func (m Model) Transcript() string {
	return m.buffer.String()
}

// SelectedModel returns the model that the next send will use.
func (m Model) SelectedModel() string {
	return m.models.Selected()
}
