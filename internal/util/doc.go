// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across tublox.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateWidth: display-width aware truncation for terminal columns
//   - PadRight: pad a string to a display width
//   - DataDir: the per-user directory holding config, logs, and sessions
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	label := util.TruncateWidth(session.Title, 24)
package util
