// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown splits model output into prose and fenced code blocks.
//
// Replies arrive as a stream, so the text may end inside a fence. Split
// reports such a block with Closed == false; renderers show it as plain
// code until the closing fence arrives.
package markdown

import "strings"

// =============================================================================
// BLOCKS
// =============================================================================

// BlockKind distinguishes prose from code.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockCode
)

// Block is one contiguous run of prose or one fenced code block.
type Block struct {
	Kind BlockKind

	// Lang is the fence info string, lowercased. Empty for prose.
	Lang string

	// Body is the text without fence lines.
	Body string

	// Closed is false for a code block whose closing fence has not arrived.
	Closed bool
}

const fence = "```"

// Split parses text into blocks in order. Empty prose runs are omitted.
func Split(text string) []Block {
	var (
		blocks []Block
		buf    []string
		inCode bool
		lang   string
	)

	flushText := func() {
		body := strings.Join(buf, "\n")
		if strings.TrimSpace(body) != "" {
			blocks = append(blocks, Block{Kind: BlockText, Body: body, Closed: true})
		}
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, fence) {
			buf = append(buf, line)
			continue
		}
		if inCode {
			blocks = append(blocks, Block{Kind: BlockCode, Lang: lang, Body: strings.Join(buf, "\n"), Closed: true})
			buf = nil
			inCode = false
			lang = ""
			continue
		}
		flushText()
		inCode = true
		lang = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, fence)))
	}

	if inCode {
		blocks = append(blocks, Block{Kind: BlockCode, Lang: lang, Body: strings.Join(buf, "\n")})
	} else {
		flushText()
	}
	return blocks
}

// CodeBlocks returns only the code blocks of text, closed or not.
func CodeBlocks(text string) []Block {
	var out []Block
	for _, b := range Split(text) {
		if b.Kind == BlockCode {
			out = append(out, b)
		}
	}
	return out
}

// LastCodeBlock returns the final code block in text.
func LastCodeBlock(text string) (Block, bool) {
	blocks := CodeBlocks(text)
	if len(blocks) == 0 {
		return Block{}, false
	}
	return blocks[len(blocks)-1], true
}

// IsLuau reports whether a fence language names Roblox Luau.
func IsLuau(lang string) bool {
	switch strings.ToLower(lang) {
	case "lua", "luau":
		return true
	}
	return false
}

// Label is the header shown above a code block.
func Label(lang string) string {
	if IsLuau(lang) {
		return "ROBLOX_LUAU_CORE"
	}
	return "GENERIC_OUTPUT"
}

// LexerName maps a fence language onto a syntax highlighter name.
// Luau is highlighted as Lua.
func LexerName(lang string) string {
	if IsLuau(lang) {
		return "lua"
	}
	return lang
}

// =============================================================================
// INLINE SPANS
// =============================================================================

// SpanKind classifies inline prose.
type SpanKind int

const (
	SpanPlain SpanKind = iota
	SpanBold
	SpanCode
)

// Span is a run of inline text with one style.
type Span struct {
	Kind SpanKind
	Text string
}

// Inline splits one line into plain, **bold** / __bold__, and `code` spans.
// Unclosed markers are kept as plain text.
func Inline(line string) []Span {
	var spans []Span
	plain := strings.Builder{}

	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Kind: SpanPlain, Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(line); {
		rest := line[i:]
		switch {
		case strings.HasPrefix(rest, "**") || strings.HasPrefix(rest, "__"):
			marker := rest[:2]
			if end := strings.Index(rest[2:], marker); end >= 0 {
				flush()
				spans = append(spans, Span{Kind: SpanBold, Text: rest[2 : 2+end]})
				i += 2 + end + 2
				continue
			}
		case rest[0] == '`':
			if end := strings.IndexByte(rest[1:], '`'); end >= 0 {
				flush()
				spans = append(spans, Span{Kind: SpanCode, Text: rest[1 : 1+end]})
				i += 1 + end + 1
				continue
			}
		}
		plain.WriteByte(line[i])
		i++
	}
	flush()
	return spans
}

// LineKind classifies a prose line by its leading marker.
type LineKind int

const (
	LinePlain LineKind = iota
	LineHeading
	LineBullet
	LineNumbered
)

// ClassifyLine returns the kind of a prose line and the text after its
// marker. Numbered lines keep their "N." prefix.
func ClassifyLine(line string) (LineKind, string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "#"):
		return LineHeading, strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	case strings.HasPrefix(trimmed, "- ") || trimmed == "-":
		return LineBullet, strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
	case strings.HasPrefix(trimmed, "* "):
		return LineBullet, strings.TrimSpace(trimmed[1:])
	}
	if n := numberedPrefix(trimmed); n > 0 {
		return LineNumbered, trimmed
	}
	return LinePlain, line
}

func numberedPrefix(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '.' {
		return 0
	}
	return i + 1
}
