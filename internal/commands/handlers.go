// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tublox/tublox-tui/internal/export"
	"github.com/tublox/tublox-tui/internal/markdown"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/storage"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StatusMsg is a one-line confirmation.
type StatusMsg struct {
	Text string
}

// ErrorMsg reports a failed command.
type ErrorMsg struct {
	Err error
}

// HelpMsg carries preformatted help text.
type HelpMsg struct {
	Text string
}

// SessionListMsg carries sessions to display, in display order.
type SessionListMsg struct {
	Title    string
	Sessions []*model.Session
	Current  string
}

// InsertTextMsg asks the UI to place text in the input for editing.
type InsertTextMsg struct {
	Text string
}

// ClearScreenMsg asks the UI to clear the terminal.
type ClearScreenMsg struct{}

var (
	// ErrNothingToCopy is returned by /copy when no reply has content.
	ErrNothingToCopy = errors.New("no assistant reply to copy")

	// ErrNoClipboard is returned when the context has no clipboard writer.
	ErrNoClipboard = errors.New("clipboard unavailable")
)

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg { return ErrorMsg{Err: err} }
}

func statusCmd(format string, args ...any) tea.Cmd {
	text := fmt.Sprintf(format, args...)
	return func() tea.Msg { return StatusMsg{Text: text} }
}

// =============================================================================
// NAVIGATION
// =============================================================================

// HandleHelp lists commands, or describes one.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	reg := ctx.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return func() tea.Msg {
		if len(args) > 0 {
			name := strings.ToLower(args[0])
			if !strings.HasPrefix(name, "/") {
				name = "/" + name
			}
			cmd := reg.Get(name)
			if cmd == nil {
				return ErrorMsg{Err: fmt.Errorf("%w: %s", ErrUnknownCommand, name)}
			}
			return HelpMsg{Text: describe(cmd)}
		}
		return HelpMsg{Text: HelpText(reg)}
	}
}

// HelpText renders every command grouped by category.
func HelpText(reg *Registry) string {
	groups := reg.ByCategory()
	cats := make([]string, 0, len(groups))
	for c := range groups {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	var sb strings.Builder
	for i, c := range cats {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c + ":\n")
		for _, cmd := range groups[c] {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&sb, "  %-32s %s\n", usage, cmd.Description)
		}
	}
	return sb.String()
}

func describe(cmd *Command) string {
	var sb strings.Builder
	usage := cmd.Usage
	if usage == "" {
		usage = cmd.Name
	}
	fmt.Fprintf(&sb, "%s\n  %s\n", usage, cmd.Description)
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(&sb, "  aliases: %s\n", strings.Join(cmd.Aliases, ", "))
	}
	return sb.String()
}

// HandleQuit exits the application.
func HandleQuit(*Context, []string) tea.Cmd {
	return tea.Quit
}

// HandleClear clears the screen.
func HandleClear(*Context, []string) tea.Cmd {
	return func() tea.Msg { return ClearScreenMsg{} }
}

// =============================================================================
// SESSIONS
// =============================================================================

// HandleNew starts a new session.
func HandleNew(ctx *Context, _ []string) tea.Cmd {
	return func() tea.Msg {
		s := ctx.Manager.CreateSession()
		return StatusMsg{Text: "Started " + s.Title}
	}
}

// HandleDelete deletes the current session or the one named by args[0].
func HandleDelete(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		target := ctx.Manager.Current()
		if len(args) > 0 {
			s, err := resolveSession(ctx, args[0])
			if err != nil {
				return ErrorMsg{Err: err}
			}
			target = s
		}
		if target == nil || !ctx.Manager.DeleteSession(target.ID) {
			return ErrorMsg{Err: storage.ErrSessionNotFound}
		}
		return StatusMsg{Text: fmt.Sprintf("Deleted %q", target.Title)}
	}
}

// HandleSessions lists sessions newest first.
func HandleSessions(ctx *Context, _ []string) tea.Cmd {
	return func() tea.Msg {
		return SessionListMsg{
			Title:    "Sessions",
			Sessions: ctx.Manager.DisplaySessions(),
			Current:  ctx.Manager.CurrentID(),
		}
	}
}

// HandleSwitch selects a session by list number or id prefix.
func HandleSwitch(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		s, err := resolveSession(ctx, args[0])
		if err != nil {
			return ErrorMsg{Err: err}
		}
		ctx.Manager.SelectSession(s.ID)
		return StatusMsg{Text: fmt.Sprintf("Switched to %q", s.Title)}
	}
}

// HandleSearch lists sessions whose title or messages contain the text.
func HandleSearch(ctx *Context, args []string) tea.Cmd {
	query := strings.Join(args, " ")
	return func() tea.Msg {
		return SessionListMsg{
			Title:    fmt.Sprintf("Sessions matching %q", query),
			Sessions: storage.Search(ctx.Manager.Sessions(), query),
			Current:  ctx.Manager.CurrentID(),
		}
	}
}

// resolveSession accepts a 1-based number into the display list or an id
// prefix.
func resolveSession(ctx *Context, ref string) (*model.Session, error) {
	display := ctx.Manager.DisplaySessions()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(display) {
			return nil, fmt.Errorf("no session number %d (have %d)", n, len(display))
		}
		return display[n-1], nil
	}
	return storage.FindByPrefix(display, ref)
}

// =============================================================================
// TOOLS
// =============================================================================

// HandleTemplate inserts a template prompt, or lists templates.
func HandleTemplate(_ *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		if len(args) == 0 {
			var sb strings.Builder
			sb.WriteString("Templates:\n")
			for _, t := range prompts.Templates {
				fmt.Fprintf(&sb, "  %-16s %-16s %s\n", t.ID, t.Name, t.Description)
			}
			return HelpMsg{Text: sb.String()}
		}
		t, ok := prompts.FindTemplate(strings.Join(args, " "))
		if !ok {
			return ErrorMsg{Err: fmt.Errorf("unknown template %q (have %s)", args[0], joinIDs())}
		}
		return InsertTextMsg{Text: t.Prompt}
	}
}

// HandleCopy copies the last code block of the latest reply, or the whole
// reply when it has no code.
func HandleCopy(ctx *Context, _ []string) tea.Cmd {
	return func() tea.Msg {
		text, what, err := CopyTarget(ctx.Manager.Current())
		if err != nil {
			return ErrorMsg{Err: err}
		}
		if ctx.Clipboard == nil {
			return ErrorMsg{Err: ErrNoClipboard}
		}
		if err := ctx.Clipboard(text); err != nil {
			return ErrorMsg{Err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return StatusMsg{Text: "Copied " + what}
	}
}

// CopyTarget picks the text /copy would place on the clipboard and a short
// description of it.
func CopyTarget(s *model.Session) (string, string, error) {
	if s == nil {
		return "", "", ErrNothingToCopy
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		msg := s.Messages[i]
		if msg.Role != model.RoleAssistant || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if b, ok := markdown.LastCodeBlock(msg.Content); ok && strings.TrimSpace(b.Body) != "" {
			body := strings.TrimSpace(b.Body)
			lines := strings.Count(body, "\n") + 1
			return body, fmt.Sprintf("%s block (%d lines)", markdown.Label(b.Lang), lines), nil
		}
		return msg.Content, "reply", nil
	}
	return "", "", ErrNothingToCopy
}

// HandleExport writes the current session to a file.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "markdown"
	if len(args) > 0 {
		format = args[0]
	}
	return func() tea.Msg {
		opts := ctx.Export
		if opts == nil {
			opts = export.DefaultOptions()
		}
		exp, err := export.ForFormat(format, opts)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		path, err := export.ToFile(ctx.Manager.Current(), exp, opts)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return StatusMsg{Text: "Exported to " + path}
	}
}
