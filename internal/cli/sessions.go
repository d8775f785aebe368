// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Saved session management: tublox sessions ...
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tublox/tublox-tui/internal/export"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/session"
	"github.com/tublox/tublox-tui/internal/storage"
	"github.com/tublox/tublox-tui/internal/ui/render"
	"github.com/tublox/tublox-tui/internal/ui/styles"
)

// HandleSessions runs a sessions subcommand.
func HandleSessions(args Args) error {
	app, err := Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()
	return RunSessions(app, args, os.Stdout)
}

// RunSessions dispatches args.Subcommand against app's sessions.
func RunSessions(app *App, args Args, out io.Writer) error {
	mgr := app.Manager

	switch args.Subcommand {
	case "show", "delete", "export":
		if len(args.Positional) == 0 {
			return usageErr("sessions "+args.Subcommand, "a session number or id is required")
		}
	}

	switch args.Subcommand {
	case "", "list":
		return listSessions(out, mgr.DisplaySessions(), mgr.CurrentID(), args.JSON)

	case "search":
		found := storage.Search(mgr.DisplaySessions(), args.Query)
		if !args.JSON {
			fmt.Fprintf(out, "%s %q\n", TitleStyle.Render("Sessions matching"), args.Query)
		}
		return listSessions(out, found, mgr.CurrentID(), args.JSON)

	case "show":
		s, err := resolveSession(mgr, args.Positional[0])
		if err != nil {
			return err
		}
		return showSession(out, app, s, args.JSON)

	case "delete":
		s, err := resolveSession(mgr, args.Positional[0])
		if err != nil {
			return err
		}
		mgr.DeleteSession(s.ID)
		fmt.Fprintf(out, "%s %q\n", SuccessStyle.Render("Deleted"), s.Title)
		return nil

	case "export":
		s, err := resolveSession(mgr, args.Positional[0])
		if err != nil {
			return err
		}
		opts := export.DefaultOptions()
		if args.Output != "" {
			opts.OutputDir = args.Output
		}
		format := strings.ToLower(args.Format)
		if format == "" {
			format = "markdown"
		}
		if app.Config.UI.Theme == "light" {
			opts.Theme = "light"
		}
		exp, err := export.ForFormat(format, opts)
		if err != nil {
			return &UsageError{Command: "sessions export", Reason: err.Error()}
		}
		path, err := export.ToFile(s, exp, opts)
		if err != nil {
			return fmt.Errorf("export %s: %w", shortID(s.ID), err)
		}
		fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("Exported to"), path)
		return nil

	default:
		return usageErr("sessions", fmt.Sprintf("unknown subcommand %q", args.Subcommand))
	}
}

// resolveSession accepts a 1-based number from the display order or an id
// prefix.
func resolveSession(mgr *session.Manager, ref string) (*model.Session, error) {
	sessions := mgr.DisplaySessions()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return nil, fmt.Errorf("session %d: %w", n, storage.ErrSessionNotFound)
		}
		return sessions[n-1], nil
	}
	s, err := storage.FindByPrefix(sessions, ref)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", ref, err)
	}
	return s, nil
}

func listSessions(out io.Writer, sessions []*model.Session, current string, jsonMode bool) error {
	if jsonMode {
		data := make([]sessionData, 0, len(sessions))
		for i, s := range sessions {
			data = append(data, sessionData{
				Number:       i + 1,
				ID:           s.ID,
				Title:        s.Title,
				Messages:     len(s.Messages),
				LastModified: s.LastModified,
				Current:      s.ID == current,
			})
		}
		return NewJSONResponse("sessions", data).Print(out)
	}
	printSessionList(out, sessions, current)
	return nil
}

// showSession prints the transcript. On a terminal messages are rendered
// as markdown; piped output stays plain text.
func showSession(out io.Writer, app *App, s *model.Session, jsonMode bool) error {
	if jsonMode {
		return NewJSONResponse("sessions show", s).Print(out)
	}

	fmt.Fprintf(out, "%s  %s\n\n", TitleStyle.Render(s.Title), MutedStyle.Render(s.ID))

	if IsStdoutTTY() {
		r := render.New(styles.NewThemeFor(app.Config.UI.Theme), outputWidth(app))
		r.ShowTimestamps = true
		for _, msg := range s.Messages {
			fmt.Fprintln(out, r.Message(msg, false))
			fmt.Fprintln(out)
		}
		return nil
	}

	for _, msg := range s.Messages {
		fmt.Fprintf(out, "## %s (%s)\n\n%s\n", msg.Role.DisplayName(), msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Content)
		printSources(out, msg.Sources)
		fmt.Fprintln(out)
	}
	return nil
}
