// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import "context"

// AudioContext is a playback or capture clock with a fixed sample rate.
// CurrentTime is in seconds since the context was opened.
type AudioContext interface {
	SampleRate() int
	CurrentTime() float64

	// Start plays samples beginning at the given context time. A time in the
	// past starts immediately.
	Start(samples []float32, at float64) (Source, error)

	Close() error
}

// Source is one scheduled chunk of playback.
type Source interface {
	// Stop halts playback. Calling Stop more than once is harmless.
	Stop()

	// Done is closed when the chunk finished or was stopped.
	Done() <-chan struct{}
}

// Microphone yields mono float frames in [-1, 1].
type Microphone interface {
	ReadFrame(ctx context.Context) ([]float32, error)
	Close() error
}

// AudioBackend opens audio devices.
type AudioBackend interface {
	NewContext(sampleRate int) (AudioContext, error)

	// OpenMicrophone starts capture on ac. A refusal by the operating system
	// is reported as ErrPermissionDenied.
	OpenMicrophone(ac AudioContext, frameSize int) (Microphone, error)
}
