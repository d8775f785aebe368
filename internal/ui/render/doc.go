// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package render turns messages into terminal text.

Two paths exist. Finished replies go through glamour for prose, with fenced
code rendered by this package so every block carries its label
(ROBLOX_LUAU_CORE for Lua and Luau, GENERIC_OUTPUT otherwise). A reply that
is still streaming uses the lightweight renderer instead: headings, bullets,
bold and inline code only, closed fences highlighted with chroma and an
unterminated fence shown as plain code with a cursor.

	r := render.New(theme, 100)
	out := r.Message(msg, streaming)
*/
package render
