// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the tublox command line: argument parsing, the
// shared startup sequence, and the non-TUI commands (chat, ask, sessions,
// voice, config).
//
// Every command handler returns an error instead of exiting. main maps the
// error to an exit code with ExitCode and prints it with DisplayError.
package cli
