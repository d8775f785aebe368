// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
)

// sampleSessions builds two sessions with nanosecond timestamps and sources.
func sampleSessions() []*model.Session {
	t0 := time.Date(2025, 3, 14, 15, 9, 26, 535897932, time.UTC)

	a := model.NewSession(t0)
	q := model.NewMessage(model.RoleUser, "How do I debounce a Touched event?", t0.Add(time.Second))
	r := model.NewMessage(model.RoleAssistant, "Use a table keyed by player.", t0.Add(2*time.Second))
	r.Sources = []model.Source{{Title: "Docs", URI: "https://create.roblox.com/docs"}}
	a.Append(q)
	a.Append(r)
	a.Title = model.DeriveTitle(q.Content)
	a.LastModified = t0.Add(2 * time.Second)

	b := model.NewSession(t0.Add(time.Hour))
	return []*model.Session{b, a}
}

func newFileStore(t *testing.T) (*SessionStore, *FileBackend) {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return NewSessionStore(backend, logging.Discard()), backend
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestSessionStore_RoundTripMillisecondPrecision(t *testing.T) {
	store, _ := newFileStore(t)
	original := sampleSessions()

	require.NoError(t, store.Save(original))
	res := store.Load()
	require.Equal(t, LoadOK, res.Status)
	require.NoError(t, res.Err)
	require.Len(t, res.Sessions, len(original))

	for i, want := range original {
		got := res.Sessions[i]
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.Title, got.Title)
		require.True(t, want.LastModified.Truncate(time.Millisecond).Equal(got.LastModified),
			"lastModified %v != %v", want.LastModified, got.LastModified)
		require.Len(t, got.Messages, len(want.Messages))
		for j, wm := range want.Messages {
			gm := got.Messages[j]
			require.Equal(t, wm.ID, gm.ID)
			require.Equal(t, wm.Role, gm.Role)
			require.Equal(t, wm.Content, gm.Content)
			require.Equal(t, wm.Sources, gm.Sources)
			require.True(t, wm.Timestamp.Truncate(time.Millisecond).Equal(gm.Timestamp))
		}
	}
}

func TestSessionStore_LoadMissingIsEmpty(t *testing.T) {
	store, _ := newFileStore(t)

	res := store.Load()
	require.Equal(t, LoadEmpty, res.Status)
	require.NoError(t, res.Err)
	require.Empty(t, res.Sessions)
}

func TestSessionStore_LoadEmptyList(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.Save(nil))

	res := store.Load()
	require.Equal(t, LoadEmpty, res.Status)
}

func TestSessionStore_LoadFallback(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		isSchema bool
	}{
		{"not json", `{{{`, false},
		{"truncated", `[{"id":"a","title":"t","messages":[`, false},
		{"object instead of array", `{"id":"a"}`, true},
		{"missing messages", `[{"id":"a","title":"t","lastModified":"2025-01-01T00:00:00.000Z"}]`, true},
		{"no messages", `[{"id":"a","title":"t","messages":[],"lastModified":"2025-01-01T00:00:00.000Z"}]`, true},
		{"missing id", `[{"title":"t","messages":[{"id":"m","role":"user","content":"x","timestamp":"2025-01-01T00:00:00.000Z"}],"lastModified":"2025-01-01T00:00:00.000Z"}]`, true},
		{"bad role", `[{"id":"a","title":"t","messages":[{"id":"m","role":"system","content":"x","timestamp":"2025-01-01T00:00:00.000Z"}],"lastModified":"2025-01-01T00:00:00.000Z"}]`, true},
		{"bad timestamp", `[{"id":"a","title":"t","messages":[{"id":"m","role":"user","content":"x","timestamp":"yesterday"}],"lastModified":"2025-01-01T00:00:00.000Z"}]`, true},
		{"bad lastModified", `[{"id":"a","title":"t","messages":[{"id":"m","role":"user","content":"x","timestamp":"2025-01-01T00:00:00.000Z"}]}]`, true},
		{"duplicate ids", `[` +
			`{"id":"a","title":"t","messages":[{"id":"m","role":"user","content":"x","timestamp":"2025-01-01T00:00:00.000Z"}],"lastModified":"2025-01-01T00:00:00.000Z"},` +
			`{"id":"a","title":"t","messages":[{"id":"m","role":"user","content":"x","timestamp":"2025-01-01T00:00:00.000Z"}],"lastModified":"2025-01-01T00:00:00.000Z"}]`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, backend := newFileStore(t)
			require.NoError(t, backend.Set(SessionsKey, []byte(tc.doc)))

			res := store.Load()
			require.Equal(t, LoadFallback, res.Status)
			require.Error(t, res.Err)
			require.Nil(t, res.Sessions)
			require.Equal(t, tc.isSchema, errors.Is(res.Err, ErrSchema), "err = %v", res.Err)
		})
	}
}

func TestDecodeSessions_AcceptsBrowserTimestamps(t *testing.T) {
	doc := `[{"id":"1712345678901","title":"New Engineering Task","messages":[` +
		`{"id":"welcome","role":"assistant","content":"hi","timestamp":"2024-04-05T19:34:38.901Z"}],` +
		`"lastModified":"2024-04-05T19:34:38.901Z"}]`

	sessions, err := DecodeSessions([]byte(doc))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	want := time.Date(2024, 4, 5, 19, 34, 38, 901_000_000, time.UTC)
	require.True(t, sessions[0].LastModified.Equal(want))
}

func TestEncodeSessions_TimestampFormat(t *testing.T) {
	loc := time.FixedZone("PDT", -7*3600)
	s := &model.Session{
		ID:           "s",
		Messages:     []*model.Message{{ID: "m", Role: model.RoleUser, Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 123456789, loc)}},
		LastModified: time.Date(2025, 6, 1, 10, 0, 0, 123456789, loc),
	}

	data, err := EncodeSessions([]*model.Session{s})
	require.NoError(t, err)
	require.Contains(t, string(data), `"lastModified":"2025-06-01T17:00:00.123Z"`)
}

// =============================================================================
// BACKEND TESTS
// =============================================================================

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, err = b.Get("missing")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, b.Set("k", []byte("v1")))
	require.NoError(t, b.Set("k", []byte("v2")))
	got, err := b.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	info, err := os.Stat(filepath.Join(dir, "k.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, b.Delete("k"))
	require.NoError(t, b.Delete("k"))
	_, err = b.Get("k")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFileBackend_SanitizesKeys(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, ".._.._etc_passwd.json", filepath.Base(b.Path("../../etc/passwd")))
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "tublox.db"))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Get(SessionsKey)
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, b.Set(SessionsKey, []byte("one")))
	require.NoError(t, b.Set(SessionsKey, []byte("two")))
	got, err := b.Get(SessionsKey)
	require.NoError(t, err)
	require.Equal(t, "two", string(got))

	require.NoError(t, b.Delete(SessionsKey))
	_, err = b.Get(SessionsKey)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSessionStore_SQLiteRoundTrip(t *testing.T) {
	backend, err := Open("sqlite", t.TempDir())
	require.NoError(t, err)
	store := NewSessionStore(backend, logging.Discard())
	defer store.Close()

	require.NoError(t, store.Save(sampleSessions()))
	res := store.Load()
	require.Equal(t, LoadOK, res.Status)
	require.Len(t, res.Sessions, 2)

	require.ErrorIs(t, store.Watch(context.Background(), func([]*model.Session) {}), ErrWatchUnsupported)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir())
	require.Error(t, err)
}

// =============================================================================
// WATCH TESTS
// =============================================================================

func TestSessionStore_WatchSeesOtherWriters(t *testing.T) {
	dir := t.TempDir()
	backendA, err := NewFileBackend(dir)
	require.NoError(t, err)
	backendB, err := NewFileBackend(dir)
	require.NoError(t, err)

	watcher := NewSessionStore(backendA, logging.Discard())
	writer := NewSessionStore(backendB, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []*model.Session, 8)
	require.NoError(t, watcher.Watch(ctx, func(s []*model.Session) { changed <- s }))

	// Own writes are ignored.
	require.NoError(t, watcher.Save(sampleSessions()[:1]))
	select {
	case got := <-changed:
		t.Fatalf("own write reported as external change: %d sessions", len(got))
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, writer.Save(sampleSessions()))
	select {
	case got := <-changed:
		require.Len(t, got, 2)
	case <-time.After(3 * time.Second):
		t.Fatal("external write was not observed")
	}
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestSearch(t *testing.T) {
	sessions := sampleSessions()

	got := Search(sessions, "touched")
	require.Len(t, got, 1)
	require.Equal(t, sessions[1].ID, got[0].ID)

	// The welcome text is shared by every session and is not searchable.
	require.Empty(t, Search(sessions, "Intelligence Core"))

	require.Len(t, Search(sessions, "  "), 2)
}

func TestFindByPrefix(t *testing.T) {
	sessions := []*model.Session{{ID: "abc123"}, {ID: "abd456"}, {ID: "xyz"}}

	s, err := FindByPrefix(sessions, "abc")
	require.NoError(t, err)
	require.Equal(t, "abc123", s.ID)

	s, err = FindByPrefix(sessions, "xyz")
	require.NoError(t, err)
	require.Equal(t, "xyz", s.ID)

	_, err = FindByPrefix(sessions, "ab")
	require.Error(t, err)

	_, err = FindByPrefix(sessions, "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
