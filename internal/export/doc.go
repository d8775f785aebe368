// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat sessions to Markdown, HTML, or JSON files.
//
// # Key Types
//
//   - Exporter: converts one session to bytes in a target format
//   - Options: output directory, metadata, timestamps, theme
//
// # Supported Formats
//
//   - Markdown: readable transcript with citations as links
//   - HTML: standalone page, code blocks highlighted by chroma
//   - JSON: the persisted session schema, re-importable
//
// # Usage
//
//	exp, err := export.ForFormat("md", opts)
//	path, err := export.ToFile(sess, exp, opts)
package export
