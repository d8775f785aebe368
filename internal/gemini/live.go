// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/voice"
)

// liveConn is the part of *genai.Session the voice adapter uses.
type liveConn interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type liveConnector func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveConn, error)

// LiveDialer opens Gemini Live sessions for the voice pipeline.
type LiveDialer struct {
	connect liveConnector
	logger  *slog.Logger
}

// NewLiveDialer creates a dialer sharing the SDK client of c.
func NewLiveDialer(c *Client) (*LiveDialer, error) {
	if c == nil || c.sdk == nil {
		return nil, ErrNotConfigured
	}
	sdk := c.sdk
	return &LiveDialer{
		connect: func(ctx context.Context, model string, cfg *genai.LiveConnectConfig) (liveConn, error) {
			sess, err := sdk.Live.Connect(ctx, model, cfg)
			if err != nil {
				return nil, err
			}
			return sess, nil
		},
		logger: c.logger,
	}, nil
}

// Dial opens an audio-only session with output transcription enabled.
func (d *LiveDialer) Dial(ctx context.Context, cfg voice.SessionConfig) (voice.Session, error) {
	conn, err := d.connect(ctx, cfg.Model, liveConfig(cfg))
	if err != nil {
		return nil, classify(err)
	}
	logging.OrDefault(d.logger).Debug("live_session_opened", "model", cfg.Model)
	return &liveSession{conn: conn}, nil
}

func liveConfig(cfg voice.SessionConfig) *genai.LiveConnectConfig {
	lc := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.VoiceName != "" {
		lc.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.VoiceName},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	return lc
}

type liveSession struct {
	conn liveConn
}

func (s *liveSession) SendAudio(ctx context.Context, b voice.Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return fmt.Errorf("decode outbound audio: %w", err)
	}
	return s.conn.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: b.MIMEType, Data: data},
	})
}

// Recv returns the next event. The underlying read is not cancellable;
// closing the session unblocks it.
func (s *liveSession) Recv(ctx context.Context) (voice.Event, error) {
	if err := ctx.Err(); err != nil {
		return voice.Event{}, err
	}
	msg, err := s.conn.Receive()
	if err != nil {
		if err := ctx.Err(); err != nil {
			return voice.Event{}, err
		}
		if normalClose(err) {
			return voice.Event{}, io.EOF
		}
		return voice.Event{}, err
	}
	return translate(msg), nil
}

func (s *liveSession) Close() error {
	return s.conn.Close()
}

func normalClose(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}

// translate flattens a server message into a voice event. Inline audio
// parts are concatenated in order.
func translate(msg *genai.LiveServerMessage) voice.Event {
	var ev voice.Event
	if msg == nil || msg.ServerContent == nil {
		return ev
	}
	sc := msg.ServerContent

	if sc.OutputTranscription != nil {
		ev.Transcript = sc.OutputTranscription.Text
	}

	if sc.ModelTurn != nil {
		var pcm []byte
		for _, part := range sc.ModelTurn.Parts {
			if part != nil && part.InlineData != nil {
				pcm = append(pcm, part.InlineData.Data...)
			}
		}
		if len(pcm) > 0 {
			ev.Audio = base64.StdEncoding.EncodeToString(pcm)
		}
	}

	ev.Interrupted = sc.Interrupted
	ev.TurnComplete = sc.TurnComplete
	return ev
}
