// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the session list for tublox.
//
// The whole list is stored as one JSON document under a single key in a
// key-value Backend. Loading never fails outright: a missing, corrupt, or
// schema-invalid document yields a LoadResult the caller can act on.
//
// # Key Types
//
//   - Backend: byte-oriented key-value store (FileBackend, SQLiteBackend)
//   - SessionStore: encodes, validates, saves, and watches the session list
//   - LoadResult / LoadStatus: typed outcome of Load
//   - SchemaError: why a stored document was rejected
//
// # Usage
//
//	backend, err := storage.NewFileBackend(dir)
//	store := storage.NewSessionStore(backend, logger)
//	res := store.Load()
//	if res.Status != storage.LoadOK {
//	    // start with a fresh session
//	}
//	err = store.Save(sessions)
//
// # Storage Location
//
// The file backend writes ~/.tublox/<key>.json; the SQLite backend keeps a
// kv table in ~/.tublox/tublox.db.
package storage
