// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Session: an ordered list of messages with a title and a last-modified time
//   - Message: one turn with role, content, timestamp, and optional citations
//   - Source: a citation (title + URI) attached to an assistant message
//   - Role: user or assistant
//
// # Usage
//
//	s := model.NewSession(time.Now())
//	s.Append(model.NewMessage(model.RoleUser, "How do I use task.wait?", time.Now()))
//	s.Title = model.DeriveTitle("How do I use task.wait?")
//
// Citations gathered over a stream are deduplicated by URI:
//
//	srcs := model.MergeSources(collected)
package model
