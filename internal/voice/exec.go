// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tublox/tublox-tui/internal/logging"
)

const (
	// sliceDuration is the pacing granularity for playback writes.
	sliceDuration = 20 * time.Millisecond

	// micStartTimeout bounds the wait for the first captured frame.
	micStartTimeout = 5 * time.Second
)

// ExecBackend drives audio through external tools that read or write raw
// mono FLOAT_LE PCM on stdin/stdout. "{rate}" in an argument is replaced
// by the sample rate.
type ExecBackend struct {
	CaptureCommand  []string
	PlaybackCommand []string
	Logger          *slog.Logger
}

// NewContext returns a wall-clock context. The playback tool is started on
// the first Start call.
func (b *ExecBackend) NewContext(sampleRate int) (AudioContext, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return &execContext{
		rate:   sampleRate,
		argv:   expandArgs(b.PlaybackCommand, sampleRate),
		logger: logging.OrDefault(b.Logger),
		origin: time.Now(),
	}, nil
}

// OpenMicrophone starts the capture tool and waits for its first frame so
// that device and permission failures surface here.
func (b *ExecBackend) OpenMicrophone(ac AudioContext, frameSize int) (Microphone, error) {
	argv := expandArgs(b.CaptureCommand, ac.SampleRate())
	if len(argv) == 0 {
		return nil, errors.New("no capture command configured")
	}
	if frameSize <= 0 {
		frameSize = FrameSize
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture pipe: %w", err)
	}
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	m := &execMicrophone{
		cmd:    cmd,
		frames: make(chan []float32, 8),
		done:   make(chan struct{}),
		stderr: stderr,
	}
	go m.read(stdout, frameSize)

	select {
	case frame, ok := <-m.frames:
		if !ok {
			_ = m.Close()
			return nil, m.startError(argv[0])
		}
		m.pending = frame
		return m, nil
	case <-time.After(micStartTimeout):
		_ = m.Close()
		return nil, fmt.Errorf("%s produced no audio within %s", argv[0], micStartTimeout)
	}
}

func expandArgs(args []string, rate int) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{rate}", strconv.Itoa(rate))
	}
	return out
}

// =============================================================================
// PLAYBACK CONTEXT
// =============================================================================

type execContext struct {
	rate   int
	argv   []string
	logger *slog.Logger
	origin time.Time

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool

	writeMu sync.Mutex
}

func (c *execContext) SampleRate() int { return c.rate }

func (c *execContext) CurrentTime() float64 {
	return time.Since(c.origin).Seconds()
}

func (c *execContext) Start(samples []float32, at float64) (Source, error) {
	w, err := c.player()
	if err != nil {
		return nil, err
	}
	src := &execSource{stop: make(chan struct{}), done: make(chan struct{})}
	go c.play(w, src, samples, at)
	return src, nil
}

func (c *execContext) player() (io.Writer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("audio context closed")
	}
	if c.stdin != nil {
		return c.stdin, nil
	}
	if len(c.argv) == 0 {
		return nil, errors.New("no playback command configured")
	}
	cmd := exec.Command(c.argv[0], c.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("playback pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.argv[0], err)
	}
	c.cmd, c.stdin = cmd, stdin
	return stdin, nil
}

// play waits for the scheduled start, then writes paced slices until the
// chunk ends or the source is stopped.
func (c *execContext) play(w io.Writer, src *execSource, samples []float32, at float64) {
	defer close(src.done)

	start := c.origin.Add(time.Duration(at * float64(time.Second)))
	if wait := time.Until(start); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-src.stop:
			t.Stop()
			return
		}
	}

	per := int(float64(c.rate) * sliceDuration.Seconds())
	if per <= 0 {
		per = 1
	}
	for i := 0; i < len(samples); i += per {
		select {
		case <-src.stop:
			return
		default:
		}
		end := min(i+per, len(samples))
		c.writeMu.Lock()
		_, err := w.Write(floatLE(samples[i:end]))
		c.writeMu.Unlock()
		if err != nil {
			c.logger.Debug("voice_playback_write_failed", "err", err)
			return
		}
		if next := start.Add(time.Duration(end) * time.Second / time.Duration(c.rate)); time.Until(next) > 0 {
			t := time.NewTimer(time.Until(next))
			select {
			case <-t.C:
			case <-src.stop:
				t.Stop()
				return
			}
		}
	}
}

func (c *execContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.stdin == nil {
		return nil
	}
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
	return nil
}

type execSource struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

func (s *execSource) Stop()                 { s.once.Do(func() { close(s.stop) }) }
func (s *execSource) Done() <-chan struct{} { return s.done }

func floatLE(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(s))
	}
	return out
}

// =============================================================================
// MICROPHONE
// =============================================================================

type execMicrophone struct {
	cmd     *exec.Cmd
	frames  chan []float32
	done    chan struct{}
	stderr  *lockedBuffer
	pending []float32

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func (m *execMicrophone) read(r io.Reader, frameSize int) {
	defer close(m.frames)
	buf := make([]byte, 4*frameSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			m.mu.Lock()
			if errors.Is(err, io.ErrUnexpectedEOF) {
				err = io.EOF
			}
			m.err = err
			m.mu.Unlock()
			return
		}
		frame := make([]float32, frameSize)
		for i := range frame {
			frame[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
		select {
		case m.frames <- frame:
		case <-m.done:
			return
		}
	}
}

func (m *execMicrophone) ReadFrame(ctx context.Context) ([]float32, error) {
	if f := m.pending; f != nil {
		m.pending = nil
		return f, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-m.frames:
		if !ok {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return nil, m.err
			}
			return nil, io.EOF
		}
		return f, nil
	}
}

func (m *execMicrophone) startError(name string) error {
	msg := strings.TrimSpace(m.stderr.String())
	if strings.Contains(strings.ToLower(msg), "permission denied") {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	}
	if msg == "" {
		msg = "no output"
	}
	return fmt.Errorf("%s exited before producing audio: %s", name, msg)
}

func (m *execMicrophone) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		if m.cmd.Process != nil {
			_ = m.cmd.Process.Kill()
		}
		_ = m.cmd.Wait()
	})
	return nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
