// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tublox/tublox-tui/internal/prompts"
)

const (
	// DefaultTitle is the title of a session before its first user message.
	DefaultTitle = "New Engineering Task"

	// WelcomeMessageID is the fixed ID of the greeting in every new session.
	WelcomeMessageID = "welcome"

	titleMaxRunes = 30
	titleEllipsis = "..."
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is a conversation with the assistant. Messages are append-only and
// a session always holds at least one message.
type Session struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Messages     []*Message `json:"messages"`
	LastModified time.Time  `json:"lastModified"`
}

// NewSession creates a session seeded with the welcome message.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:    NewID(),
		Title: DefaultTitle,
		Messages: []*Message{{
			ID:        WelcomeMessageID,
			Role:      RoleAssistant,
			Content:   prompts.WelcomeText,
			Timestamp: now,
		}},
		LastModified: now,
	}
}

// Append adds a message to the end of the session.
func (s *Session) Append(msg *Message) {
	s.Messages = append(s.Messages, msg)
}

// MessageByID returns the message with the given ID, or nil.
func (s *Session) MessageByID(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// HasUserMessage reports whether the user has said anything in this session.
func (s *Session) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// LastMessage returns the most recent message, or nil for an empty session.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// Clone returns a deep copy that shares no memory with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = make([]*Message, len(s.Messages))
	for i, m := range s.Messages {
		c.Messages[i] = m.Clone()
	}
	return &c
}

// =============================================================================
// HELPERS
// =============================================================================

// DeriveTitle builds a session title from the first user message: the first
// 30 characters, trimmed, with an ellipsis when the text was longer.
func DeriveTitle(text string) string {
	runes := []rune(norm.NFC.String(text))
	if len(runes) <= titleMaxRunes {
		return strings.TrimSpace(string(runes))
	}
	return strings.TrimSpace(string(runes[:titleMaxRunes])) + titleEllipsis
}

// SortByLastModified returns a copy of sessions ordered newest first.
// Sessions modified at the same instant keep their relative order.
func SortByLastModified(sessions []*Session) []*Session {
	out := append([]*Session(nil), sessions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out
}
