// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tublox/tublox-tui/internal/commands"
	"github.com/tublox/tublox-tui/internal/config"
	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/session"
	"github.com/tublox/tublox-tui/internal/ui/render"
	"github.com/tublox/tublox-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// streamDoneMsg reports the end of a reply stream.
type streamDoneMsg struct {
	Turn *session.Turn
	Err  error
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat model. Manager is required.
type Options struct {
	Manager *session.Manager

	// Streamer produces replies. Nil makes every send fail with
	// ErrNoStreamer, which shows the stream error text in the transcript.
	Streamer session.Streamer

	Config *config.Config
	Theme  *styles.Theme
	Logger *slog.Logger

	// Clipboard overrides the system clipboard, mainly for tests.
	Clipboard func(string) error

	// ModelName is shown in the header.
	ModelName string
}

// ErrNoStreamer is the stream error when no model client is configured.
var ErrNoStreamer = errors.New("no model client configured")

type failingStreamer struct{ err error }

func (f failingStreamer) StreamMessage(context.Context, []*model.Message, func(string), func([]model.Source)) error {
	return f.err
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	mgr      *session.Manager
	streamer session.Streamer
	cfg      *config.Config
	theme    *styles.Theme
	renderer *render.Renderer
	logger   *slog.Logger
	keys     KeyMap

	registry   *commands.Registry
	parser     *commands.Parser
	cmdCtx     *commands.Context
	completer  *commands.Completer
	completion *commands.CompletionState

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model

	// turn is the reply this model started and is still streaming.
	turn   *session.Turn
	cancel *cancelManager

	// cache holds rendered finished messages keyed by id and length.
	cache map[string]string

	width, height int
	sidebarWidth  int
	modelName     string

	// notice is command output shown under the transcript until dismissed.
	notice string
	status string
	isErr  bool

	templateIdx int
	ready       bool
}

// New creates the chat model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewThemeFor(cfg.UI.Theme)
	}
	streamer := opts.Streamer
	if streamer == nil {
		streamer = failingStreamer{err: ErrNoStreamer}
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Describe your Roblox task, or type /help"
	ta.ShowLineNumbers = false
	ta.Prompt = theme.InputPrompt.Render("> ")
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys(keys.Newline.Keys()...))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	reg := commands.NewRegistry()
	cmdCtx := commands.NewContext(opts.Manager, cfg)
	cmdCtx.Registry = reg
	if opts.Clipboard != nil {
		cmdCtx.Clipboard = opts.Clipboard
	}
	completer := commands.NewCompleter(reg)
	completer.SessionsFn = opts.Manager.DisplaySessions

	r := render.New(theme, cfg.UI.WordWrap)
	r.ShowTimestamps = cfg.UI.ShowTimestamps

	return Model{
		mgr:          opts.Manager,
		streamer:     streamer,
		cfg:          cfg,
		theme:        theme,
		renderer:     r,
		logger:       logging.OrDefault(opts.Logger).With("component", "tui"),
		keys:         keys,
		registry:     reg,
		parser:       commands.NewParser(reg),
		cmdCtx:       cmdCtx,
		completer:    completer,
		completion:   commands.NewCompletionState(),
		viewport:     viewport.New(80, 20),
		input:        ta,
		spinner:      sp,
		help:         help.New(),
		cancel:       newCancelManager(),
		cache:        make(map[string]string),
		sidebarWidth: cfg.UI.SidebarWidth,
		modelName:    opts.ModelName,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Streaming reports whether this model's reply is still running.
func (m Model) Streaming() bool {
	return m.turn != nil
}

// Shutdown cancels a running reply. Call it after the program exits.
func (m Model) Shutdown() {
	m.cancel.cancel()
}

// Run starts the program in the alternate screen and blocks until it
// exits.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	fwdCtx, stop := context.WithCancel(ctx)
	defer stop()
	opts.Manager.Forward(fwdCtx, p.Send)

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Shutdown()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
