// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/tublox/tublox-tui/internal/markdown"
	"github.com/tublox/tublox-tui/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a session to HTML.
func (e *HTMLExporter) Export(s *model.Session) ([]byte, error) {
	if err := validate(s); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(singleLine(s.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"tublox\">\n")
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString("<header class=\"header\">\n")
		fmt.Fprintf(&sb, "    <h1>%s</h1>\n", html.EscapeString(s.Title))
		fmt.Fprintf(&sb, "    <div class=\"metadata\"><span>Updated: %s</span><span>Messages: %d</span></div>\n",
			formatTimestamp(s.LastModified), len(s.Messages))
		sb.WriteString("</header>\n")
	}

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range s.Messages {
		e.renderMessage(&sb, msg, theme)
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\">Exported from <strong>Tublox</strong> on %s</footer>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderMessage(sb *strings.Builder, msg *model.Message, theme string) {
	fmt.Fprintf(sb, "<div class=\"message %s-message\">\n", html.EscapeString(string(msg.Role)))
	sb.WriteString("  <div class=\"message-header\">")
	fmt.Fprintf(sb, "<span class=\"role-label\">%s</span>", html.EscapeString(msg.Role.DisplayName()))
	if e.options.IncludeTimestamps {
		fmt.Fprintf(sb, "<span class=\"timestamp\">%s</span>", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("</div>\n  <div class=\"message-content\">\n")

	for _, b := range markdown.Split(msg.Content) {
		if b.Kind == markdown.BlockCode {
			sb.WriteString(renderCode(b, theme))
			continue
		}
		sb.WriteString(renderProse(b.Body))
	}
	sb.WriteString("  </div>\n")

	if len(msg.Sources) > 0 {
		sb.WriteString("  <div class=\"sources\"><p>Platform Intelligence Links</p>\n")
		for _, src := range msg.Sources {
			fmt.Fprintf(sb, "    <a href=\"%s\" rel=\"noopener noreferrer\">%s</a>\n",
				html.EscapeString(src.URI), html.EscapeString(src.Title))
		}
		sb.WriteString("  </div>\n")
	}
	sb.WriteString("</div>\n")
}

// renderCode highlights a fenced block with chroma using inline styles.
// Highlighting failures fall back to escaped plain text.
func renderCode(b markdown.Block, theme string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<div class=\"code-block\"><div class=\"code-lang\">%s</div>",
		html.EscapeString(markdown.Label(b.Lang)))

	lexer := lexers.Get(markdown.LexerName(b.Lang))
	if lexer == nil {
		lexer = lexers.Analyse(b.Body)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "github-dark"
	if theme == "light" {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)

	var code strings.Builder
	it, err := lexer.Tokenise(nil, strings.TrimSpace(b.Body))
	if err == nil {
		err = chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4)).Format(&code, style, it)
	}
	if err != nil {
		code.Reset()
		fmt.Fprintf(&code, "<pre><code>%s</code></pre>", html.EscapeString(strings.TrimSpace(b.Body)))
	}
	sb.WriteString(code.String())
	sb.WriteString("</div>\n")
	return sb.String()
}

// renderProse converts the inline markdown subset to HTML paragraphs.
func renderProse(text string) string {
	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		sb.WriteString("    <p>")
		lines := strings.Split(strings.Trim(para, "\n"), "\n")
		for i, line := range lines {
			kind, rest := markdown.ClassifyLine(line)
			switch kind {
			case markdown.LineHeading:
				fmt.Fprintf(&sb, "<span class=\"heading\">%s</span>", renderInline(rest))
			case markdown.LineBullet:
				fmt.Fprintf(&sb, "&bull; %s", renderInline(rest))
			default:
				sb.WriteString(renderInline(rest))
			}
			if i < len(lines)-1 {
				sb.WriteString("<br>")
			}
		}
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

func renderInline(line string) string {
	var sb strings.Builder
	for _, span := range markdown.Inline(line) {
		text := html.EscapeString(span.Text)
		switch span.Kind {
		case markdown.SpanBold:
			fmt.Fprintf(&sb, "<strong>%s</strong>", text)
		case markdown.SpanCode:
			fmt.Fprintf(&sb, "<code class=\"inline-code\">%s</code>", text)
		default:
			sb.WriteString(text)
		}
	}
	return sb.String()
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        .dark-theme {
            --bg: #0d1117; --panel: #161b22; --border: #2d333b;
            --text: #c9d1d9; --muted: #6e7681; --accent: #3b82f6; --user: #1d4ed8;
        }
        .light-theme {
            --bg: #ffffff; --panel: #f6f8fa; --border: #d0d7de;
            --text: #24292f; --muted: #57606a; --accent: #0969da; --user: #ddf4ff;
        }
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: var(--bg); color: var(--text); line-height: 1.6; padding: 20px; }
        .container { max-width: 900px; margin: 0 auto; }
        .header { padding: 24px 0; border-bottom: 2px solid var(--border); margin-bottom: 24px; }
        .header h1 { font-size: 26px; margin-bottom: 8px; }
        .metadata { display: flex; gap: 16px; font-size: 13px; color: var(--muted); }
        .message { background: var(--panel); border: 1px solid var(--border); border-radius: 16px; padding: 20px; margin-bottom: 20px; }
        .user-message { background: var(--user); }
        .message-header { display: flex; justify-content: space-between; font-size: 12px; font-weight: 700; text-transform: uppercase; letter-spacing: 0.1em; color: var(--muted); margin-bottom: 12px; }
        .message-content p { margin-bottom: 12px; }
        .heading { display: block; font-weight: 800; color: var(--accent); text-transform: uppercase; }
        .inline-code { font-family: "Fira Code", monospace; background: rgba(59,130,246,0.15); padding: 1px 5px; border-radius: 4px; }
        .code-block { border: 1px solid var(--border); border-radius: 12px; overflow: hidden; margin: 16px 0; }
        .code-block pre { padding: 16px; overflow-x: auto; font-size: 13px; }
        .code-lang { font-family: monospace; font-size: 10px; font-weight: 800; letter-spacing: 0.2em; color: var(--muted); padding: 8px 16px; border-bottom: 1px solid var(--border); }
        .sources { margin-top: 16px; padding-top: 12px; border-top: 1px solid var(--border); font-size: 11px; }
        .sources p { font-weight: 800; color: var(--accent); text-transform: uppercase; margin-bottom: 8px; }
        .sources a { display: inline-block; margin: 0 6px 6px 0; padding: 2px 8px; border: 1px solid var(--border); border-radius: 6px; color: var(--text); text-decoration: none; }
        .footer { text-align: center; font-size: 12px; color: var(--muted); padding: 24px 0; }
    </style>
`
