// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/markdown"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/ui/styles"
)

const (
	cursor       = "▌"
	sourcesTitle = "Platform Intelligence Links"
	minWidth     = 20
)

// Renderer renders messages at a fixed width.
type Renderer struct {
	theme  *styles.Theme
	width  int
	term   *glamour.TermRenderer
	logger *slog.Logger

	// ShowTimestamps adds a relative time to message headers.
	ShowTimestamps bool
}

// New creates a renderer. Width below a small minimum is raised to it.
func New(theme *styles.Theme, width int) *Renderer {
	if theme == nil {
		theme = styles.NewTheme()
	}
	r := &Renderer{theme: theme, logger: logging.OrDefault(nil).With("component", "render")}
	r.SetWidth(width)
	return r
}

// Width returns the wrap width.
func (r *Renderer) Width() int { return r.width }

// SetWidth changes the wrap width and rebuilds the glamour renderer.
func (r *Renderer) SetWidth(width int) {
	if width < minWidth {
		width = minWidth
	}
	if width == r.width && r.term != nil {
		return
	}
	r.width = width

	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.logger.Warn("glamour_init_failed", "err", err)
		term = nil
	}
	r.term = term
}

// =============================================================================
// MESSAGES
// =============================================================================

// Message renders a header line, the body and any sources. streaming
// selects the lightweight body renderer.
func (r *Renderer) Message(msg *model.Message, streaming bool) string {
	var sb strings.Builder
	sb.WriteString(r.header(msg))
	sb.WriteString("\n")

	switch {
	case streaming && msg.Content == "":
		sb.WriteString(r.theme.Cursor.Render(cursor))
	case streaming:
		sb.WriteString(r.Streaming(msg.Content))
	case msg.Role == model.RoleUser:
		sb.WriteString(r.theme.Body.Width(r.width).Render(msg.Content))
	default:
		sb.WriteString(r.Markdown(msg.Content))
	}

	if src := r.Sources(msg.Sources); src != "" {
		sb.WriteString("\n\n")
		sb.WriteString(src)
	}
	return sb.String()
}

func (r *Renderer) header(msg *model.Message) string {
	label := r.theme.AssistantLabel
	if msg.Role == model.RoleUser {
		label = r.theme.UserLabel
	}
	h := label.Render(msg.Role.DisplayName())
	if r.ShowTimestamps && !msg.Timestamp.IsZero() {
		h += " " + r.theme.Timestamp.Render(humanize.Time(msg.Timestamp))
	}
	return h
}

// Markdown renders a finished reply: prose through glamour, code through
// CodeBlock.
func (r *Renderer) Markdown(content string) string {
	if r.term == nil {
		return r.Streaming(content)
	}

	var parts []string
	for _, b := range markdown.Split(content) {
		if b.Kind == markdown.BlockCode {
			parts = append(parts, r.CodeBlock(b))
			continue
		}
		out, err := r.term.Render(b.Body)
		if err != nil {
			r.logger.Debug("glamour_render_failed", "err", err)
			out = r.prose(b.Body)
		}
		parts = append(parts, strings.Trim(out, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// Sources renders the citation list, or "" when there are none.
func (r *Renderer) Sources(sources []model.Source) string {
	if len(sources) == 0 {
		return ""
	}
	lines := []string{r.theme.SourcesTitle.Render(sourcesTitle)}
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URI
		}
		lines = append(lines, "  "+r.theme.SourceLink.Render(title)+" "+r.theme.SourceURI.Render(s.URI))
	}
	return strings.Join(lines, "\n")
}
