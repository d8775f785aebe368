// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import "context"

// Event is one inbound message from the realtime session. Any combination
// of fields may be set.
type Event struct {
	// Audio is base64 PCM at PlaybackSampleRate.
	Audio string

	// Transcript is a fragment of the spoken reply as text.
	Transcript string

	// Interrupted is set when the user spoke over the reply.
	Interrupted bool

	TurnComplete bool
}

// SessionConfig describes the realtime session to open.
type SessionConfig struct {
	Model             string
	VoiceName         string
	SystemInstruction string
}

// Session is an open realtime connection.
type Session interface {
	SendAudio(ctx context.Context, b Blob) error

	// Recv blocks for the next event. It returns io.EOF after a clean close.
	Recv(ctx context.Context) (Event, error)

	Close() error
}

// Dialer opens realtime sessions.
type Dialer interface {
	Dial(ctx context.Context, cfg SessionConfig) (Session, error)
}
