// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/tublox/tublox-tui/internal/markdown"
)

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// Highlight colors code for a 256-color terminal. It returns code unchanged
// when no lexer applies or formatting fails.
func Highlight(code, lang, style string) string {
	lexer := lexers.Get(markdown.LexerName(lang))
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		return code
	}
	lexer = chroma.Coalesce(lexer)

	s := chromaStyles.Get(style)
	if s == nil {
		s = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, s, it); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

// CodeBlock renders a fenced block: the label line, then numbered lines in
// a bordered box. A closed block is highlighted; an open one is shown plain
// with the streaming cursor on its last line.
func (r *Renderer) CodeBlock(b markdown.Block) string {
	labelStyle := r.theme.CodeLabel
	if markdown.IsLuau(b.Lang) {
		labelStyle = r.theme.CodeLabelLua
	}
	label := labelStyle.Render(markdown.Label(b.Lang))

	code := strings.Trim(b.Body, "\n")
	if b.Closed {
		code = Highlight(code, b.Lang, r.theme.ChromaStyle())
	}

	lines := strings.Split(code, "\n")
	numbered := make([]string, len(lines))
	for i, line := range lines {
		numbered[i] = r.theme.CodeLineNum.Render(strconv.Itoa(i+1)) + line
	}
	if !b.Closed {
		numbered[len(numbered)-1] += r.theme.Cursor.Render(cursor)
	}

	box := r.theme.CodeBlock
	if w := r.width - 2; w > 20 {
		box = box.MaxWidth(w)
	}
	return label + "\n" + box.Render(strings.Join(numbered, "\n"))
}
