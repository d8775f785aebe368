// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Red is the brand accent.
var Red = lipgloss.AdaptiveColor{Light: "#C81E1E", Dark: "#F05252"}

// RedDeep backs the selected sidebar entry.
var RedDeep = lipgloss.AdaptiveColor{Light: "#FDE8E8", Dark: "#3B1212"}

var Blue = lipgloss.AdaptiveColor{Light: "#1C64F2", Dark: "#76A9FA"}

var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#111827"}

// Overlay is used for borders and separators.
var Overlay = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F3F4F6"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

// =============================================================================
// STATUS HELPERS
// =============================================================================

// StatusIndicators are ASCII markers shown next to colored status text.
var StatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success line with its marker.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line with its marker.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line with its marker.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an informational line with its marker.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Blue).
		Render(StatusIndicators.Info + " " + message)
}
