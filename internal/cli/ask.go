// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot questions: tublox ask "question".
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tublox/tublox-tui/internal/gemini"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/session"
	"github.com/tublox/tublox-tui/internal/ui/render"
	"github.com/tublox/tublox-tui/internal/ui/styles"
)

const sourcesTitle = "Platform Intelligence Links"

// HandleAsk answers args.Query and exits.
func HandleAsk(ctx context.Context, args Args) error {
	app, err := Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Connect(ctx); err != nil {
		return err
	}
	return RunAsk(ctx, app, args, os.Stdout)
}

// RunAsk streams one answer to out. The exchange is kept as a new session
// unless args.NoSave is set. With args.Render on a terminal the finished
// answer is rendered as markdown instead of being streamed raw.
func RunAsk(ctx context.Context, app *App, args Args, out io.Writer) error {
	if app.Streamer == nil {
		return gemini.ErrNotConfigured
	}

	mgr := app.Manager
	if args.NoSave {
		mgr = session.NewManager(nil, session.Options{Logger: app.Logger})
	} else {
		mgr.CreateSession()
	}

	turn, ok := mgr.SendUserMessage(args.Query)
	if !ok {
		return usageErr("ask", "nothing to send")
	}

	rendered := args.Render && !args.JSON && IsStdoutTTY()
	if !rendered && !args.JSON {
		newFragmentPrinter(mgr, out).follow(turn.MessageID)
	}

	err := mgr.Respond(ctx, app.Streamer, turn)
	if err != nil {
		if !args.JSON {
			fmt.Fprintln(out)
		}
		return fmt.Errorf("ask: %w", err)
	}

	reply := replyFor(mgr, turn)
	switch {
	case args.JSON:
		data := askData{Model: app.Config.Gemini.Model, Answer: reply.Content, Sources: []sourceData{}}
		if !args.NoSave {
			data.SessionID = turn.SessionID
		}
		for _, s := range reply.Sources {
			data.Sources = append(data.Sources, sourceData(s))
		}
		return NewJSONResponse("ask", data).Print(out)

	case rendered:
		r := render.New(styles.NewThemeFor(app.Config.UI.Theme), outputWidth(app))
		fmt.Fprintln(out, r.Message(reply, false))

	default:
		fmt.Fprintln(out)
		printSources(out, reply.Sources)
	}
	return nil
}

// replyFor returns the finished assistant message of turn.
func replyFor(mgr *session.Manager, turn *session.Turn) *model.Message {
	if s := mgr.Session(turn.SessionID); s != nil {
		if msg := s.MessageByID(turn.MessageID); msg != nil {
			return msg
		}
	}
	return &model.Message{ID: turn.MessageID, Role: model.RoleAssistant}
}

func outputWidth(app *App) int {
	w := GetTerminalWidth()
	if ww := app.Config.UI.WordWrap; ww > 0 && ww < w {
		w = ww
	}
	return w
}

// printSources lists citations under an answer.
func printSources(w io.Writer, sources []model.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render(sourcesTitle))
	for i, s := range sources {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, s.Title)
		fmt.Fprintf(w, "      %s\n", LinkStyle.Render(s.URI))
	}
}

// =============================================================================
// FRAGMENT PRINTER
// =============================================================================

// fragmentPrinter writes the fragments of one followed message as the
// manager applies them.
type fragmentPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	active string
}

func newFragmentPrinter(mgr *session.Manager, w io.Writer) *fragmentPrinter {
	p := &fragmentPrinter{w: w}
	mgr.OnChange(p.handle)
	return p
}

func (p *fragmentPrinter) follow(messageID string) {
	p.mu.Lock()
	p.active = messageID
	p.mu.Unlock()
}

func (p *fragmentPrinter) handle(ev session.Event) {
	if ev.Kind != session.EventFragment {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.MessageID == p.active && p.active != "" {
		fmt.Fprint(p.w, ev.Text)
	}
}
