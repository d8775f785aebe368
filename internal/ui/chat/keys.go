// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the chat key bindings.
type KeyMap struct {
	Submit      key.Binding
	Newline     key.Binding
	Complete    key.Binding
	NewSession  key.Binding
	Delete      key.Binding
	PrevSession key.Binding
	NextSession key.Binding
	Copy        key.Binding
	Template    key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		Complete: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "complete"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new task"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete task"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("ctrl+up", "alt+up"),
			key.WithHelp("C-up", "prev task"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("ctrl+down", "alt+down"),
			key.WithHelp("C-down", "next task"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy code"),
		),
		Template: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "template"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewSession, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.Complete, k.Dismiss},
		{k.NewSession, k.Delete, k.PrevSession, k.NextSession},
		{k.Copy, k.Template, k.PageUp, k.PageDown},
		{k.Help, k.Quit},
	}
}
