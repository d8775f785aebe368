// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// CaptureSampleRate is the microphone sample rate sent upstream.
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the sample rate of synthesized replies.
	PlaybackSampleRate = 24000

	// FrameSize is the number of samples per captured frame.
	FrameSize = 4096

	pcmScale = 32768.0
)

// Blob is one chunk of encoded audio on the wire. Data is base64.
type Blob struct {
	MIMEType string
	Data     string
}

// EncodePCM16 quantizes float samples in [-1, 1] to 16-bit little-endian
// PCM. Out-of-range samples are clamped rather than wrapped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * pcmScale)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// DecodePCM16 converts 16-bit little-endian PCM to float samples in
// [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / pcmScale
	}
	return out
}

// EncodeBlob packages a captured frame for the realtime session.
func EncodeBlob(samples []float32, sampleRate int) Blob {
	return Blob{
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
		Data:     base64.StdEncoding.EncodeToString(EncodePCM16(samples)),
	}
}

// DecodeAudio turns a base64 PCM payload into float samples.
func DecodeAudio(b64 string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode audio payload: %w", err)
	}
	return DecodePCM16(raw), nil
}

// Duration returns the playback length in seconds of n samples at rate.
func Duration(n, rate int) float64 {
	if rate <= 0 {
		return 0
	}
	return float64(n) / float64(rate)
}
