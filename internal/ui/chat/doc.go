// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the full-screen Bubble Tea interface.

The layout is a header line, a session sidebar on the left, the transcript
viewport, a textarea for input and a one-line footer for status and key
help.

# State

Model holds no conversation state of its own. Everything is read from a
session.Manager, whose events reach the program through Manager.Forward.
A reply stream runs in a tea.Cmd goroutine; its fragments arrive as
session.EventMsg values and the transcript re-renders on each.

# Keys

	Enter         send, or run a /command
	Alt+Enter     newline
	Tab           complete a /command or its argument
	Ctrl+N        new session
	Ctrl+X        delete the current session
	Ctrl+Up/Down  previous or next session
	Ctrl+Y        copy the last code block
	Ctrl+T        insert the next project template
	PgUp/PgDn     scroll the transcript
	F1            toggle full help
	Ctrl+C        quit
*/
package chat
