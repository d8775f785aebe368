// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/tublox/tublox-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(s *model.Session) ([]byte, error) {
	if err := validate(s); err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(s.Title))
		fmt.Fprintf(&sb, "id: %s\n", s.ID)
		fmt.Fprintf(&sb, "updated: %s\n", s.LastModified.UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(s.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().UTC().Format(time.RFC3339))
		sb.WriteString("generator: tublox\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(singleLine(s.Title)))

	for i, msg := range s.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if len(msg.Sources) > 0 {
			sb.WriteString("**Sources**\n\n")
			for _, src := range msg.Sources {
				fmt.Fprintf(&sb, "- [%s](%s)\n", escapeMarkdown(singleLine(src.Title)), linkDestination(src.URI))
			}
			sb.WriteString("\n")
		}

		if i < len(s.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported from Tublox on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break headings and links.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	)
	return r.Replace(s)
}

// singleLine collapses line breaks so a value stays on its heading or list
// line.
func singleLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}

// linkDestination wraps a URI in angle brackets so spaces and parentheses
// stay inside the link.
func linkDestination(uri string) string {
	r := strings.NewReplacer(
		"<", "%3C",
		">", "%3E",
		"\n", "%0A",
		"\r", "%0D",
	)
	return "<" + r.Replace(uri) + ">"
}

// escapeYAML quotes a frontmatter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
