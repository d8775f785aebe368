// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/tublox/tublox-tui/internal/util"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a minimal key-value store.
type Backend interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)

	// Set replaces the value for key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	Close() error
}

// Watcher is implemented by backends that can report writes made by other
// processes.
type Watcher interface {
	// Watch calls onChange after key is modified, until ctx is done.
	Watch(ctx context.Context, key string, onChange func()) error
}

// ErrKeyNotFound is returned by Backend.Get for a key that was never set.
var ErrKeyNotFound = &StoreError{Message: "key not found"}

// ErrWatchUnsupported is returned when the backend cannot watch for changes.
var ErrWatchUnsupported = &StoreError{Message: "backend does not support watching"}

// StoreError represents a storage-level failure that callers compare with errors.Is.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// Is matches any StoreError with the same message.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileBackend stores each key as <dir>/<key>.json, written atomically.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the file backing key.
func (b *FileBackend) Path(key string) string {
	return filepath.Join(b.dir, sanitizeKey(key)+".json")
}

// Get reads the file for key.
func (b *FileBackend) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set atomically replaces the file for key.
func (b *FileBackend) Set(key string, value []byte) error {
	if err := util.AtomicWriteFile(b.Path(key), value, 0600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key.
func (b *FileBackend) Delete(key string) error {
	if err := os.Remove(b.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (b *FileBackend) Close() error {
	return nil
}

// Watch watches the storage directory rather than the file itself, because
// atomic writes replace the file's inode on every save.
func (b *FileBackend) Watch(ctx context.Context, key string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(b.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", b.dir, err)
	}

	target := b.Path(key)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					onChange()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// sanitizeKey keeps keys usable as file names.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
