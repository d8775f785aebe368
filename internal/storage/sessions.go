// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
)

// SessionsKey is the storage key holding the serialized session list.
const SessionsKey = "tublox_chats_v6"

// =============================================================================
// LOAD RESULT
// =============================================================================

// LoadStatus is the outcome of SessionStore.Load.
type LoadStatus int

const (
	// LoadOK means a valid, non-empty session list was read.
	LoadOK LoadStatus = iota
	// LoadEmpty means nothing has been stored yet, or an empty list was stored.
	LoadEmpty
	// LoadFallback means the stored document was unreadable, corrupt, or
	// failed schema validation. Err says why.
	LoadFallback
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadFallback:
		return "fallback"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

// LoadResult is returned by Load instead of an error so that callers handle
// every outcome explicitly.
type LoadResult struct {
	Sessions []*model.Session
	Status   LoadStatus
	Err      error
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore saves and restores the session list under SessionsKey.
type SessionStore struct {
	backend Backend
	key     string
	logger  *slog.Logger

	mu        sync.Mutex
	lastWrite [sha256.Size]byte
}

// NewSessionStore wraps backend. A nil logger uses slog.Default().
func NewSessionStore(backend Backend, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		backend: backend,
		key:     SessionsKey,
		logger:  logging.OrDefault(logger),
	}
}

// Open builds the backend named by kind ("file" or "sqlite") inside dir.
func Open(kind, dir string) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", "file":
		return NewFileBackend(dir)
	case "sqlite":
		return OpenSQLite(filepath.Join(dir, "tublox.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

// Backend returns the underlying key-value store.
func (s *SessionStore) Backend() Backend {
	return s.backend
}

// Load reads and validates the stored session list. Failures are logged
// and reported as LoadFallback; they are never returned as errors.
func (s *SessionStore) Load() LoadResult {
	data, err := s.backend.Get(s.key)
	if errors.Is(err, ErrKeyNotFound) {
		return LoadResult{Status: LoadEmpty}
	}
	if err != nil {
		s.logger.Warn("sessions_load_failed", "err", err)
		return LoadResult{Status: LoadFallback, Err: err}
	}
	return s.decode(data)
}

func (s *SessionStore) decode(data []byte) LoadResult {
	sessions, err := DecodeSessions(data)
	if err != nil {
		s.logger.Warn("sessions_rejected", "err", err, "bytes", len(data))
		return LoadResult{Status: LoadFallback, Err: err}
	}
	if len(sessions) == 0 {
		return LoadResult{Status: LoadEmpty}
	}
	return LoadResult{Sessions: sessions, Status: LoadOK}
}

// Save serializes and writes the full session list.
func (s *SessionStore) Save(sessions []*model.Session) error {
	data, err := EncodeSessions(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Set(s.key, data); err != nil {
		return err
	}
	s.lastWrite = sha256.Sum256(data)
	return nil
}

// Watch calls fn with the new session list whenever another process
// rewrites it. Writes made through this store are ignored, as are
// documents that fail validation. Returns ErrWatchUnsupported when the
// backend cannot watch.
func (s *SessionStore) Watch(ctx context.Context, fn func([]*model.Session)) error {
	w, ok := s.backend.(Watcher)
	if !ok {
		return ErrWatchUnsupported
	}
	return w.Watch(ctx, s.key, func() {
		data, err := s.backend.Get(s.key)
		if err != nil {
			return
		}
		sum := sha256.Sum256(data)
		s.mu.Lock()
		own := bytes.Equal(sum[:], s.lastWrite[:])
		s.mu.Unlock()
		if own {
			return
		}

		res := s.decode(data)
		if res.Status != LoadOK {
			return
		}
		s.logger.Info("sessions_changed_externally", "sessions", len(res.Sessions))
		fn(res.Sessions)
	})
}

// Close releases the backend.
func (s *SessionStore) Close() error {
	return s.backend.Close()
}

// =============================================================================
// QUERIES
// =============================================================================

// Search returns sessions whose title or message content contains query,
// case-insensitively, newest first.
func Search(sessions []*model.Session, query string) []*model.Session {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return model.SortByLastModified(sessions)
	}

	var out []*model.Session
	for _, s := range sessions {
		if matches(s, q) {
			out = append(out, s)
		}
	}
	return model.SortByLastModified(out)
}

func matches(s *model.Session, q string) bool {
	if strings.Contains(strings.ToLower(s.Title), q) {
		return true
	}
	for _, m := range s.Messages {
		if m.ID == model.WelcomeMessageID {
			continue
		}
		if strings.Contains(strings.ToLower(m.Content), q) {
			return true
		}
	}
	return false
}

// FindByPrefix resolves a full session ID or a unique prefix of one.
func FindByPrefix(sessions []*model.Session, prefix string) (*model.Session, error) {
	var found *model.Session
	for _, s := range sessions {
		if s.ID == prefix {
			return s, nil
		}
		if prefix != "" && strings.HasPrefix(s.ID, prefix) {
			if found != nil {
				return nil, fmt.Errorf("session id prefix %q is ambiguous", prefix)
			}
			found = s
		}
	}
	if found == nil {
		return nil, ErrSessionNotFound
	}
	return found, nil
}

// ErrSessionNotFound is returned when no session matches an ID.
var ErrSessionNotFound = &StoreError{Message: "session not found"}
