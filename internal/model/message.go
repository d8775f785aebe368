// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Tublox AI"
	default:
		return string(r)
	}
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is a web citation returned by search grounding.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// DefaultSourceTitle is used when the endpoint returns a citation without a title.
const DefaultSourceTitle = "Reference"

// MergeSources deduplicates sources by URI. A URI keeps the position of its
// first occurrence and the value of its last occurrence.
func MergeSources(list []Source) []Source {
	out := make([]Source, 0, len(list))
	index := make(map[string]int, len(list))
	for _, s := range list {
		if i, ok := index[s.URI]; ok {
			out[i] = s
			continue
		}
		index[s.URI] = len(out)
		out = append(out, s)
	}
	return out
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a session. Content only grows while the
// assistant reply is streaming.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []Source  `json:"sources,omitempty"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, content string, now time.Time) *Message {
	return &Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Sources != nil {
		c.Sources = append([]Source(nil), m.Sources...)
	}
	return &c
}

// NewID returns a random identifier for sessions and messages.
func NewID() string {
	return uuid.NewString()
}
