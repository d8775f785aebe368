// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tublox/tublox-tui/internal/commands"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/session"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case session.EventMsg:
		m.handleEvent(msg.Event)
		return m, nil

	case streamDoneMsg:
		if m.turn != nil && msg.Turn != nil && m.turn.MessageID == msg.Turn.MessageID {
			m.turn = nil
			m.cancel.cancel()
		}
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.setError(fmt.Errorf("reply failed: %w", msg.Err))
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case commands.StatusMsg:
		m.setStatus(msg.Text)
		m.refresh()
		return m, nil
	case commands.ErrorMsg:
		m.setError(msg.Err)
		return m, nil
	case commands.HelpMsg:
		m.notice = msg.Text
		m.refresh()
		return m, nil
	case commands.SessionListMsg:
		m.notice = m.sessionList(msg)
		m.refresh()
		return m, nil
	case commands.InsertTextMsg:
		m.input.SetValue(msg.Text)
		m.input.CursorEnd()
		return m, nil
	case commands.ClearScreenMsg:
		m.notice = ""
		m.status = ""
		m.refresh()
		return m, tea.ClearScreen
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Complete) {
		m.completion.Clear()
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		return m, m.runCommand("/new")

	case key.Matches(msg, m.keys.Delete):
		return m, m.runCommand("/delete")

	case key.Matches(msg, m.keys.PrevSession):
		m.step(-1)
		return m, nil

	case key.Matches(msg, m.keys.NextSession):
		m.step(1)
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.runCommand("/copy")

	case key.Matches(msg, m.keys.Template):
		t := prompts.Templates[m.templateIdx%len(prompts.Templates)]
		m.templateIdx++
		m.input.SetValue(t.Prompt)
		m.input.CursorEnd()
		m.setStatus("Template: " + t.Name)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		m.notice = ""
		m.status = ""
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input as a message or runs it as a command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if commands.IsCommand(text) {
		m.input.Reset()
		return m, m.runCommand(text)
	}
	if m.turn != nil || m.mgr.Awaiting() {
		m.setStatus("Wait for the current reply to finish")
		return m, nil
	}

	turn, ok := m.mgr.SendUserMessage(text)
	if !ok {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	m.status = ""
	m.turn = turn
	m.refresh()
	m.viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel.set(cancel)
	return m, tea.Batch(m.spinner.Tick, respond(ctx, m.mgr, m.streamer, turn))
}

func respond(ctx context.Context, mgr *session.Manager, s session.Streamer, turn *session.Turn) tea.Cmd {
	return func() tea.Msg {
		return streamDoneMsg{Turn: turn, Err: mgr.Respond(ctx, s, turn)}
	}
}

// runCommand parses and executes a slash command. Handlers run inside the
// returned cmd.
func (m Model) runCommand(line string) tea.Cmd {
	return m.registry.Execute(m.cmdCtx, m.parser.Parse(line))
}

// complete cycles through completions for the word under the cursor.
func (m *Model) complete() {
	value := m.input.Value()
	if !m.completion.Visible {
		m.completion.Update(value, m.completer.Complete(value, len(value)))
	} else {
		m.completion.Next()
	}
	sel := m.completion.Selection()
	if sel == nil {
		return
	}
	base := m.completion.OriginalInput
	head := ""
	if i := strings.LastIndexByte(base, ' '); i >= 0 {
		head = base[:i+1]
	}
	m.input.SetValue(head + sel.Value)
	m.input.CursorEnd()
}

// step selects the session delta places away in display order.
func (m *Model) step(delta int) {
	list := m.mgr.DisplaySessions()
	if len(list) == 0 {
		return
	}
	cur := m.mgr.CurrentID()
	idx := 0
	for i, s := range list {
		if s.ID == cur {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(list)) % len(list)
	m.mgr.SelectSession(list[idx].ID)
	m.refresh()
	m.viewport.GotoBottom()
}

// =============================================================================
// EVENTS
// =============================================================================

func (m *Model) handleEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventFragment, session.EventSources, session.EventUpdated:
		if ev.SessionID != m.mgr.CurrentID() {
			return
		}
	case session.EventReplaced:
		m.cache = make(map[string]string)
	}

	atBottom := m.viewport.AtBottom()
	m.refresh()
	if atBottom || ev.Kind == session.EventSelected || ev.Kind == session.EventCreated {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.isErr = false
}

func (m *Model) setError(err error) {
	m.logger.Debug("ui_error", "err", err)
	m.status = err.Error()
	m.isErr = true
}
