// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/tublox/tublox-tui/internal/markdown"
)

// Streaming renders partial reply text. It never fails: anything it does
// not recognize is shown as plain text.
func (r *Renderer) Streaming(content string) string {
	blocks := markdown.Split(content)
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == markdown.BlockCode {
			parts = append(parts, r.CodeBlock(b))
		} else {
			parts = append(parts, r.prose(b.Body))
		}
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) prose(body string) string {
	lines := strings.Split(strings.Trim(body, "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		kind, text := markdown.ClassifyLine(line)
		switch kind {
		case markdown.LineHeading:
			out = append(out, r.theme.Heading.Render(r.inline(text)))
		case markdown.LineBullet:
			out = append(out, r.theme.Bullet.Render("•")+" "+r.wrap(r.inline(text), 2))
		default:
			out = append(out, r.wrap(r.inline(text), 0))
		}
	}
	return strings.Join(out, "\n")
}

func (r *Renderer) inline(line string) string {
	var sb strings.Builder
	for _, span := range markdown.Inline(line) {
		switch span.Kind {
		case markdown.SpanBold:
			sb.WriteString(r.theme.Bold.Render(span.Text))
		case markdown.SpanCode:
			sb.WriteString(r.theme.InlineCode.Render(span.Text))
		default:
			sb.WriteString(span.Text)
		}
	}
	return sb.String()
}

// wrap wraps styled text to the renderer width minus indent.
func (r *Renderer) wrap(s string, indent int) string {
	w := r.width - indent
	if w < minWidth || s == "" {
		return s
	}
	return r.theme.Body.Width(w).Render(s)
}
