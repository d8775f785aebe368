// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tublox/tublox-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Red)

	PromptStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Red)

	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Blue)

	LabelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(14)

	ValueStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)

	MutedStyle = lipgloss.NewStyle().Foreground(styles.TextMuted)

	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald)

	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber)

	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Rose)

	LinkStyle = lipgloss.NewStyle().Foreground(styles.Blue).Underline(true)
)
