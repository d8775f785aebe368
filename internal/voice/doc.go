// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice implements the realtime voice pipeline: microphone audio
// is streamed to a realtime model session and synthesized replies are
// scheduled for gap-free playback.
//
// # State Machine
//
//	idle -> connecting -> streaming <-> interrupted
//	  any state -> closed (Disconnect, session end, or failure)
//
// # Key Types
//
//   - Pipeline: owns the audio contexts, microphone, session, and loops
//   - Scheduler: queues decoded chunks back to back and flushes on interruption
//   - AudioBackend / AudioContext / Microphone: audio device abstraction
//   - Session / Dialer: the realtime endpoint abstraction
//   - ExecBackend: audio devices driven through external PCM tools
//
// # Wire Format
//
// Outbound audio is 16 kHz mono signed 16-bit little-endian PCM, base64
// encoded, with MIME type "audio/pcm;rate=16000". Inbound audio is the same
// encoding at 24 kHz.
package voice
