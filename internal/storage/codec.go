// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tublox/tublox-tui/internal/model"
)

// timeLayout matches JavaScript's Date.toISOString: UTC with milliseconds.
const timeLayout = "2006-01-02T15:04:05.000Z"

// =============================================================================
// STORED TYPES
// =============================================================================

// storedSession is the on-disk shape of a session. Timestamps are kept as
// strings so that validation can report bad values instead of failing the
// whole decode.
type storedSession struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Messages     []storedMessage `json:"messages"`
	LastModified string          `json:"lastModified"`
}

type storedMessage struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	Sources   []model.Source `json:"sources,omitempty"`
}

// =============================================================================
// SCHEMA ERRORS
// =============================================================================

// ErrSchema matches every SchemaError via errors.Is.
var ErrSchema = &SchemaError{}

// SchemaError reports where a stored document deviates from the session schema.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema mismatch: " + e.Reason
	}
	return fmt.Sprintf("schema mismatch at %s: %s", e.Path, e.Reason)
}

// Is reports true for any *SchemaError target.
func (e *SchemaError) Is(target error) bool {
	_, ok := target.(*SchemaError)
	return ok
}

// =============================================================================
// ENCODE / DECODE
// =============================================================================

// EncodeSessions serializes sessions in their given order.
func EncodeSessions(sessions []*model.Session) ([]byte, error) {
	out := make([]storedSession, len(sessions))
	for i, s := range sessions {
		ss := storedSession{
			ID:           s.ID,
			Title:        s.Title,
			Messages:     make([]storedMessage, len(s.Messages)),
			LastModified: formatTime(s.LastModified),
		}
		for j, m := range s.Messages {
			ss.Messages[j] = storedMessage{
				ID:        m.ID,
				Role:      string(m.Role),
				Content:   m.Content,
				Timestamp: formatTime(m.Timestamp),
				Sources:   m.Sources,
			}
		}
		out[i] = ss
	}
	return json.Marshal(out)
}

// DecodeSessions parses and validates a stored document. Any deviation
// from the schema is reported as a *SchemaError; malformed JSON is returned
// wrapped as-is.
func DecodeSessions(data []byte) ([]*model.Session, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("corrupt session document: %w", err)
	}

	var stored []storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("expected an array of sessions: %v", err)}
	}

	seen := make(map[string]bool, len(stored))
	sessions := make([]*model.Session, 0, len(stored))
	for i, ss := range stored {
		path := fmt.Sprintf("[%d]", i)
		s, err := decodeSession(path, ss)
		if err != nil {
			return nil, err
		}
		if seen[s.ID] {
			return nil, &SchemaError{Path: path + ".id", Reason: fmt.Sprintf("duplicate session id %q", s.ID)}
		}
		seen[s.ID] = true
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func decodeSession(path string, ss storedSession) (*model.Session, error) {
	if ss.ID == "" {
		return nil, &SchemaError{Path: path + ".id", Reason: "missing"}
	}
	if ss.Messages == nil {
		return nil, &SchemaError{Path: path + ".messages", Reason: "missing"}
	}
	if len(ss.Messages) == 0 {
		return nil, &SchemaError{Path: path + ".messages", Reason: "session has no messages"}
	}
	lastModified, err := parseTime(ss.LastModified)
	if err != nil {
		return nil, &SchemaError{Path: path + ".lastModified", Reason: err.Error()}
	}

	s := &model.Session{
		ID:           ss.ID,
		Title:        ss.Title,
		Messages:     make([]*model.Message, len(ss.Messages)),
		LastModified: lastModified,
	}
	for j, sm := range ss.Messages {
		mpath := fmt.Sprintf("%s.messages[%d]", path, j)
		if sm.ID == "" {
			return nil, &SchemaError{Path: mpath + ".id", Reason: "missing"}
		}
		role := model.Role(sm.Role)
		if !role.Valid() {
			return nil, &SchemaError{Path: mpath + ".role", Reason: fmt.Sprintf("unknown role %q", sm.Role)}
		}
		ts, err := parseTime(sm.Timestamp)
		if err != nil {
			return nil, &SchemaError{Path: mpath + ".timestamp", Reason: err.Error()}
		}
		s.Messages[j] = &model.Message{
			ID:        sm.ID,
			Role:      role,
			Content:   sm.Content,
			Timestamp: ts,
			Sources:   sm.Sources,
		}
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}
