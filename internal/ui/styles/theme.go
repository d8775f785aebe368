// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used by the renderer and the TUI.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	StatusBar   lipgloss.Style
	Input       lipgloss.Style
	InputPrompt lipgloss.Style
	Spinner     lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SessionItem     lipgloss.Style
	SessionSelected lipgloss.Style
	SessionMeta     lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	Heading        lipgloss.Style
	Bullet         lipgloss.Style
	Bold           lipgloss.Style
	InlineCode     lipgloss.Style
	Cursor         lipgloss.Style

	// ==========================================================================
	// CODE AND SOURCES
	// ==========================================================================

	CodeBlock    lipgloss.Style
	CodeLabel    lipgloss.Style
	CodeLabelLua lipgloss.Style
	CodeLineNum  lipgloss.Style
	SourcesTitle lipgloss.Style
	SourceLink   lipgloss.Style
	SourceURI    lipgloss.Style

	ErrorText lipgloss.Style
	Notice    lipgloss.Style
}

// NewTheme creates a theme for the detected terminal background.
func NewTheme() *Theme {
	return newTheme(termenv.HasDarkBackground())
}

// NewThemeFor creates a theme for a configured mode: "dark", "light", or
// anything else for auto-detection.
func NewThemeFor(mode string) *Theme {
	switch strings.ToLower(mode) {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return newTheme(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return newTheme(false)
	default:
		return NewTheme()
	}
}

func newTheme(dark bool) *Theme {
	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// ChromaStyle names the chroma style matching the background.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

// GlamourStyle names the glamour style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = lipgloss.NewStyle().Bold(true).Foreground(Red)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)
	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Red).Bold(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Amber)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary).MarginBottom(1)
	t.SessionItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SessionSelected = lipgloss.NewStyle().Foreground(Red).Background(RedDeep).Bold(true)
	t.SessionMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Blue)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Red)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Heading = lipgloss.NewStyle().Bold(true).Foreground(Red)
	t.Bullet = lipgloss.NewStyle().Foreground(Red)
	t.Bold = lipgloss.NewStyle().Bold(true)
	t.InlineCode = lipgloss.NewStyle().Foreground(Amber).Background(SurfaceDim)
	t.Cursor = lipgloss.NewStyle().Foreground(Amber).Blink(true)

	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CodeLabel = lipgloss.NewStyle().Foreground(TextMuted).Bold(true)
	t.CodeLabelLua = lipgloss.NewStyle().Foreground(Red).Bold(true)
	t.CodeLineNum = lipgloss.NewStyle().Foreground(TextMuted).Width(4).Align(lipgloss.Right).MarginRight(1)
	t.SourcesTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)
	t.SourceLink = lipgloss.NewStyle().Foreground(Blue).Underline(true)
	t.SourceURI = lipgloss.NewStyle().Foreground(TextMuted)

	t.ErrorText = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Notice = lipgloss.NewStyle().Foreground(Emerald)
}
