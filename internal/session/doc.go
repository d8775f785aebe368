// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the list of chat sessions and the single in-flight
// reply stream.
//
// Every operation on a Manager runs under one mutex and is followed by a
// synchronous save of the whole list, so readers never observe a partly
// applied change and the persisted list always matches memory.
//
// # Key Types
//
//   - Manager: session list, current pointer, and stream slot
//   - Turn: the address of one reply (session id + placeholder message id)
//   - Event: change notification delivered to OnChange listeners
//   - EventMsg: Bubble Tea wrapper for Event
//
// # Usage
//
//	mgr := session.NewManager(store.Load().Sessions, session.Options{Persister: store})
//	turn, ok := mgr.SendUserMessage("Write a leaderstats script")
//	if ok {
//	    go mgr.Respond(ctx, client, turn)
//	}
//
// # Streams
//
// A reply is addressed by the session and message IDs captured when it was
// requested. Switching sessions while a reply streams never redirects its
// fragments; deleting the target session drops them.
package session
