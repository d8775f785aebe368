// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the slash commands shared by the TUI and the
// line REPL.
//
// Handlers return a tea.Cmd. The TUI hands it to Bubble Tea; the REPL calls
// it directly and switches on the resulting message.
//
// # Key Types
//
//   - Registry: all commands, looked up by name or alias
//   - Parser / ParseResult: input splitting with quote handling
//   - Context: the dependencies handlers act on
//   - Completer: completion of command names and arguments
//
// # Built-in Commands
//
//   - /new, /delete, /sessions, /switch, /search: session management
//   - /template: insert a project template prompt
//   - /copy: copy the last code block to the clipboard
//   - /export: write the current session to a file
//   - /help, /clear, /quit
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res := commands.NewParser(reg).Parse(input)
//	if res.IsCommand {
//	    cmd := reg.Execute(ctx, res)
//	}
package commands
