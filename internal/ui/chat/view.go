// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tublox/tublox-tui/internal/commands"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/util"
)

const (
	brand           = "TUBLOX AI"
	minSidebarTotal = 70
	inputHeight     = 3
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true
	m.layout()
}

// layout sizes the viewport and input from the window and the footer.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	mainWidth := m.width - m.sidebarSpace()
	if mainWidth < 20 {
		mainWidth = 20
	}

	footer := lipgloss.Height(m.footer())
	vpHeight := m.height - 1 - (inputHeight + 1) - footer
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.input.SetWidth(mainWidth)

	wrap := mainWidth - 2
	if w := m.cfg.UI.WordWrap; w > 0 && w < wrap {
		wrap = w
	}
	if wrap != m.renderer.Width() {
		m.renderer.SetWidth(wrap)
		m.cache = make(map[string]string)
	}
	m.refresh()
}

// sidebarSpace is the columns taken by the sidebar and its border, or 0
// when the window is too narrow to show it.
func (m *Model) sidebarSpace() int {
	if m.sidebarWidth <= 0 || m.width < minSidebarTotal {
		return 0
	}
	return m.sidebarWidth + 2
}

// refresh re-renders the current session into the viewport.
func (m *Model) refresh() {
	s := m.mgr.Current()
	if s == nil {
		m.viewport.SetContent("")
		return
	}

	parts := make([]string, 0, len(s.Messages)+1)
	for _, msg := range s.Messages {
		parts = append(parts, m.renderMessage(msg))
	}
	if m.notice != "" {
		parts = append(parts, m.theme.Timestamp.Render(strings.TrimRight(m.notice, "\n")))
	}
	m.viewport.SetContent(strings.Join(parts, "\n\n"))
}

func (m *Model) renderMessage(msg *model.Message) string {
	if m.turn != nil && msg.ID == m.turn.MessageID {
		return m.renderer.Message(msg, true)
	}
	k := msg.ID + ":" + strconv.Itoa(len(msg.Content)) + ":" + strconv.Itoa(len(msg.Sources))
	if out, ok := m.cache[k]; ok {
		return out
	}
	out := m.renderer.Message(msg, false)
	m.cache[k] = out
	return out
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.theme.Input.Width(m.viewport.Width).Render(m.input.View()),
	)
	body := main
	if m.sidebarSpace() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar(lipgloss.Height(main)), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.header(), body, m.footer())
}

func (m Model) header() string {
	left := m.theme.HeaderBrand.Render(brand)
	if m.modelName != "" {
		left += " " + m.theme.Timestamp.Render(m.modelName)
	}
	right := ""
	if m.turn != nil {
		right = m.spinner.View() + " generating"
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) footer() string {
	var lines []string
	if m.completion.Visible {
		vals := make([]string, 0, len(m.completion.Completions))
		for i, c := range m.completion.Completions {
			v := c.Value
			if i == m.completion.Selected {
				v = m.theme.SessionSelected.Render(v)
			}
			vals = append(vals, v)
		}
		lines = append(lines, strings.Join(vals, "  "))
	}
	if m.status != "" {
		if m.isErr {
			lines = append(lines, m.theme.ErrorText.Render(m.status))
		} else {
			lines = append(lines, m.theme.Notice.Render(m.status))
		}
	}
	lines = append(lines, m.help.View(m.keys))
	return m.theme.StatusBar.Render(strings.Join(lines, "\n"))
}

// sidebar lists sessions newest first, the current one highlighted.
func (m Model) sidebar(height int) string {
	w := m.sidebarWidth
	cur := m.mgr.CurrentID()
	lines := []string{m.theme.SidebarTitle.Render("TASKS")}
	for _, s := range m.mgr.DisplaySessions() {
		title := util.PadRight(util.TruncateWidth(s.Title, w), w)
		if s.ID == cur {
			lines = append(lines, m.theme.SessionSelected.Render(title))
		} else {
			lines = append(lines, m.theme.SessionItem.Render(title))
		}
		meta := fmt.Sprintf("%s · %d msgs", humanize.Time(s.LastModified), len(s.Messages))
		lines = append(lines, m.theme.SessionMeta.Render(util.TruncateWidth(meta, w)))
	}
	return m.theme.Sidebar.Width(w).Height(height).MaxHeight(height).Render(strings.Join(lines, "\n"))
}

// sessionList formats a /sessions or /search result.
func (m Model) sessionList(msg commands.SessionListMsg) string {
	var sb strings.Builder
	sb.WriteString(msg.Title + ":\n")
	if len(msg.Sessions) == 0 {
		sb.WriteString("  (none)\n")
	}
	for i, s := range msg.Sessions {
		marker := " "
		if s.ID == msg.Current {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %2d. %-8s %s  %s\n", marker, i+1, shortID(s.ID), s.Title, humanize.Time(s.LastModified))
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
