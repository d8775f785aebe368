// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// voice.go - Realtime voice mode: tublox voice.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tublox/tublox-tui/internal/gemini"
	"github.com/tublox/tublox-tui/internal/prompts"
	"github.com/tublox/tublox-tui/internal/voice"
)

// HandleVoice streams the microphone to the live model and prints
// transcripts until ctx is cancelled (Ctrl+C) or the session fails.
func HandleVoice(ctx context.Context, args Args) error {
	app, err := Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Connect(ctx); err != nil {
		return err
	}
	dialer, err := gemini.NewLiveDialer(app.Client)
	if err != nil {
		return err
	}

	cfg := app.Config
	backend := &voice.ExecBackend{
		CaptureCommand:  cfg.Voice.CaptureCommand,
		PlaybackCommand: cfg.Voice.PlaybackCommand,
		Logger:          app.Logger,
	}
	pipeline := voice.New(backend, dialer, voice.Config{
		Session: voice.SessionConfig{
			Model:             cfg.Voice.Model,
			VoiceName:         cfg.Voice.VoiceName,
			SystemInstruction: prompts.VoiceInstruction(),
		},
		Endpoint: cfg.Gemini.BaseURL,
	}, app.Logger)

	return RunVoice(ctx, pipeline, os.Stdout, os.Stderr)
}

// voicePipeline is the part of *voice.Pipeline RunVoice drives.
type voicePipeline interface {
	Connect(ctx context.Context, h voice.Handlers) error
	Disconnect()
}

// RunVoice connects p and prints its events until ctx ends or the session
// reports an error. The pipeline is always disconnected on return.
func RunVoice(ctx context.Context, p voicePipeline, out, errOut io.Writer) error {
	failed := make(chan error, 1)
	closed := make(chan struct{}, 1)

	h := voice.Handlers{
		OnMessage: func(text string) {
			fmt.Fprintf(out, "%s %s\n", AssistantStyle.Render("Tublox AI:"), text)
		},
		OnInterrupted: func() {
			fmt.Fprintln(out, MutedStyle.Render("[interrupted]"))
		},
		OnStateChange: func(s voice.State) {
			fmt.Fprintln(errOut, MutedStyle.Render("voice: "+s.String()))
			if s == voice.StateClosed {
				select {
				case closed <- struct{}{}:
				default:
				}
			}
		},
		OnError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
	}
	defer p.Disconnect()

	if err := p.Connect(ctx, h); err != nil {
		if errors.Is(err, voice.ErrPermissionDenied) {
			fmt.Fprintln(errOut, WarningStyle.Render(prompts.MicrophoneDeniedText))
		}
		return fmt.Errorf("voice: %w", err)
	}
	fmt.Fprintln(errOut, MutedStyle.Render("Listening. Press Ctrl+C to stop."))

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return fmt.Errorf("voice: %w", err)
	case <-closed:
		// A failure reports its cause before the closed state.
		select {
		case err := <-failed:
			return fmt.Errorf("voice: %w", err)
		default:
			return nil
		}
	}
}
