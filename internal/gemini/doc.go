// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini connects tublox to Google's Gemini models through the
// google.golang.org/genai SDK.
//
// # Key Types
//
//   - Client: streams a text reply for a conversation history, with search
//     grounding citations delivered once at the end
//   - LiveDialer: opens realtime audio sessions for the voice pipeline
//   - StreamError: a failed stream, with how much text arrived first
//
// # Usage
//
//	c, err := gemini.New(ctx, gemini.Options{APIKey: key, Model: "gemini-3-pro-preview"})
//	err = c.StreamMessage(ctx, history,
//	    func(text string) { fmt.Print(text) },
//	    func(srcs []model.Source) { ... },
//	)
//
// Errors are returned to the caller unchanged in kind; nothing is retried.
package gemini
