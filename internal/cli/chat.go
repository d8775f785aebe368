// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode interactive chat: tublox chat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"

	"github.com/tublox/tublox-tui/internal/commands"
	"github.com/tublox/tublox-tui/internal/config"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/session"
	"github.com/tublox/tublox-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing, history and tab completion.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the line editor and loads saved history. complete
// may be nil.
func NewChatCLI(complete func(string) []string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if complete != nil {
		line.SetCompleter(complete)
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(config.ConfigDir(), "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory reads the history file if it exists.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput prompts for a line. A non-empty suggestion pre-fills the line.
func (c *ChatCLI) ReadInput(prompt, suggestion string) (string, error) {
	var (
		input string
		err   error
	)
	if suggestion != "" {
		input, err = c.line.PromptWithSuggestion(prompt, suggestion, -1)
	} else {
		input, err = c.line.Prompt(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession is the state of one REPL run.
type ChatSession struct {
	App      *App
	Registry *commands.Registry
	Parser   *commands.Parser
	Commands *commands.Context

	out     io.Writer
	errOut  io.Writer
	printer *fragmentPrinter

	// pending pre-fills the next prompt (set by /template).
	pending string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewChatSession wires the slash command registry to app's manager.
func NewChatSession(app *App, out, errOut io.Writer) *ChatSession {
	reg := commands.NewRegistry()
	cmdCtx := commands.NewContext(app.Manager, app.Config)
	cmdCtx.Registry = reg

	return &ChatSession{
		App:      app,
		Registry: reg,
		Parser:   commands.NewParser(reg),
		Commands: cmdCtx,
		out:      out,
		errOut:   errOut,
		printer:  newFragmentPrinter(app.Manager, out),
	}
}

// HandleChat runs the interactive REPL until /quit, Ctrl+C at the prompt
// or Ctrl+D.
func HandleChat(ctx context.Context, args Args) error {
	app, err := Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%s %v\n", WarningStyle.Render("[Warning]"), err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	app.Watch(watchCtx)

	cs := NewChatSession(app, os.Stdout, os.Stderr)
	completer := commands.NewCompleter(cs.Registry)
	completer.SessionsFn = app.Manager.DisplaySessions

	input := NewChatCLI(completer.Lines)
	defer input.Close()

	// Ctrl+C while a reply streams cancels that reply. At the prompt liner
	// handles it and the loop exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if cs.cancelStream() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	cs.printWelcome()
	for {
		line, err := input.ReadInput(PromptStyle.Render("tublox> "), cs.takePending())
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) and io.EOF (Ctrl+D) both end the session.
			fmt.Fprintln(cs.out)
			return nil
		}
		if quit := cs.Process(ctx, line); quit {
			return nil
		}
	}
}

// Process handles one line of input and reports whether the REPL should exit.
func (cs *ChatSession) Process(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
		return true
	}

	res := cs.Parser.Parse(line)
	if res.IsCommand {
		return cs.runCommand(res)
	}

	if err := cs.send(ctx, line); err != nil {
		fmt.Fprintf(cs.errOut, "%s %v\n", ErrorStyle.Render("[Error]"), err)
	}
	return false
}

// send streams a reply to text into the current session.
func (cs *ChatSession) send(ctx context.Context, text string) error {
	mgr := cs.App.Manager
	turn, ok := mgr.SendUserMessage(text)
	if !ok {
		return errors.New("a reply is still streaming")
	}

	streamer := cs.App.Streamer
	if streamer == nil {
		streamer = unavailableStreamer{}
	}

	streamCtx, cancel := context.WithCancel(ctx)
	cs.setCancel(cancel)
	defer cs.cancelStream()

	fmt.Fprintln(cs.out, AssistantStyle.Render(model.RoleAssistant.DisplayName()))
	cs.printer.follow(turn.MessageID)
	err := mgr.Respond(streamCtx, streamer, turn)
	cs.printer.follow("")
	fmt.Fprintln(cs.out)

	if err != nil && streamCtx.Err() != nil && errors.Is(err, context.Canceled) {
		fmt.Fprintln(cs.out, MutedStyle.Render("[cancelled]"))
		return nil
	}
	if err != nil {
		fmt.Fprintln(cs.out, WarningStyle.Render(prompts.StreamErrorText))
		return err
	}
	printSources(cs.out, replyFor(mgr, turn).Sources)
	fmt.Fprintln(cs.out)
	return nil
}

// runCommand executes a slash command and prints its result.
func (cs *ChatSession) runCommand(res commands.ParseResult) bool {
	cmd := cs.Registry.Execute(cs.Commands, res)
	if cmd == nil {
		return false
	}

	switch msg := cmd().(type) {
	case tea.QuitMsg:
		return true
	case commands.StatusMsg:
		fmt.Fprintln(cs.out, SuccessStyle.Render(msg.Text))
	case commands.ErrorMsg:
		fmt.Fprintf(cs.errOut, "%s %v\n", ErrorStyle.Render("[Error]"), msg.Err)
	case commands.HelpMsg:
		fmt.Fprintln(cs.out, msg.Text)
	case commands.SessionListMsg:
		fmt.Fprintln(cs.out, TitleStyle.Render(msg.Title))
		printSessionList(cs.out, msg.Sessions, msg.Current)
	case commands.InsertTextMsg:
		cs.pending = msg.Text
	case commands.ClearScreenMsg:
		fmt.Fprint(cs.out, "\033[H\033[2J")
	}
	return false
}

func (cs *ChatSession) takePending() string {
	p := cs.pending
	cs.pending = ""
	return p
}

func (cs *ChatSession) setCancel(cancel context.CancelFunc) {
	cs.mu.Lock()
	cs.cancel = cancel
	cs.mu.Unlock()
}

// cancelStream cancels the running reply, if any, and reports whether
// there was one.
func (cs *ChatSession) cancelStream() bool {
	cs.mu.Lock()
	cancel := cs.cancel
	cs.cancel = nil
	cs.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

func (cs *ChatSession) printWelcome() {
	cur := cs.App.Manager.Current()
	fmt.Fprintln(cs.out, TitleStyle.Render("TUBLOX AI")+" "+MutedStyle.Render(cs.App.Config.Gemini.Model))
	if cur != nil {
		fmt.Fprintf(cs.out, "%s %s\n", MutedStyle.Render("Session:"), cur.Title)
	}
	fmt.Fprintln(cs.out, MutedStyle.Render("Type /help for commands, /quit or Ctrl+D to exit."))
	fmt.Fprintln(cs.out)
}

// unavailableStreamer fails every request, so the transcript records the
// stream error text when no client could be created.
type unavailableStreamer struct{}

func (unavailableStreamer) StreamMessage(context.Context, []*model.Message, func(string), func([]model.Source)) error {
	return errNoClient
}

var errNoClient = errors.New("Gemini client unavailable; set an API key and restart")

var _ session.Streamer = unavailableStreamer{}

// =============================================================================
// SESSION LISTING
// =============================================================================

// printSessionList prints sessions numbered from 1, marking current.
func printSessionList(w io.Writer, sessions []*model.Session, current string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("  (no sessions)"))
		return
	}
	for i, s := range sessions {
		marker := " "
		if s.ID == current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %3d  %s  %s  %s\n",
			marker,
			i+1,
			MutedStyle.Render(shortID(s.ID)),
			util.PadRight(util.TruncateWidth(s.Title, 40), 40),
			MutedStyle.Render(fmt.Sprintf("%d msgs, %s", len(s.Messages), humanize.Time(s.LastModified))),
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
