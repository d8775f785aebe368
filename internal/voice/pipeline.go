// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/tublox/tublox-tui/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrPermissionDenied means the operating system refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrInsecureContext means the realtime endpoint is not encrypted.
	ErrInsecureContext = errors.New("voice requires a secure endpoint (https or wss)")

	// ErrAlreadyConnected is returned by Connect on a live pipeline.
	ErrAlreadyConnected = errors.New("voice pipeline already connected")

	// ErrDisconnected is returned by Connect when Disconnect ran before it finished.
	ErrDisconnected = errors.New("voice pipeline disconnected")
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of a Pipeline.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateInterrupted
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateInterrupted:
		return "interrupted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) live() bool {
	return s == StateConnecting || s == StateStreaming || s == StateInterrupted
}

// Handlers receive pipeline callbacks. Any field may be nil. Callbacks run
// on the receive goroutine and must not block for long.
type Handlers struct {
	OnMessage     func(text string)
	OnInterrupted func()
	OnStateChange func(State)
	OnError       func(error)
}

// Config controls a Pipeline. Zero values take the package defaults.
type Config struct {
	Session SessionConfig

	// Endpoint is the realtime base URL. Empty means the SDK default.
	Endpoint string

	FrameSize    int
	CaptureRate  int
	PlaybackRate int
}

func (c Config) withDefaults() Config {
	if c.FrameSize <= 0 {
		c.FrameSize = FrameSize
	}
	if c.CaptureRate <= 0 {
		c.CaptureRate = CaptureSampleRate
	}
	if c.PlaybackRate <= 0 {
		c.PlaybackRate = PlaybackSampleRate
	}
	return c
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline streams microphone audio to a realtime session and plays the
// replies. A closed pipeline may be connected again.
type Pipeline struct {
	backend AudioBackend
	dialer  Dialer
	cfg     Config
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	handlers Handlers
	cancel   context.CancelFunc
	capture  AudioContext
	playback AudioContext
	mic      Microphone
	session  Session
	sched    *Scheduler
}

// New creates an idle pipeline.
func New(backend AudioBackend, dialer Dialer, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		backend: backend,
		dialer:  dialer,
		cfg:     cfg.withDefaults(),
		logger:  logging.OrDefault(logger).With("component", "voice"),
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect acquires audio devices, opens the realtime session and starts
// streaming. On any failure everything acquired so far is released and the
// pipeline ends in StateClosed.
func (p *Pipeline) Connect(ctx context.Context, h Handlers) error {
	if err := CheckEndpoint(p.cfg.Endpoint); err != nil {
		return err
	}

	p.mu.Lock()
	if p.state.live() {
		p.mu.Unlock()
		return ErrAlreadyConnected
	}
	p.gen++
	gen := p.gen
	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.handlers = h
	p.state = StateConnecting
	p.mu.Unlock()
	notifyState(h, StateConnecting)

	capture, err := p.backend.NewContext(p.cfg.CaptureRate)
	if err != nil {
		return p.fail(gen, fmt.Errorf("open capture context: %w", err))
	}
	if !p.keep(gen, func() { p.capture = capture }) {
		closeQuietly(p.logger, "capture_context", capture)
		return ErrDisconnected
	}

	playback, err := p.backend.NewContext(p.cfg.PlaybackRate)
	if err != nil {
		return p.fail(gen, fmt.Errorf("open playback context: %w", err))
	}
	sched := NewScheduler(playback)
	if !p.keep(gen, func() { p.playback = playback; p.sched = sched }) {
		closeQuietly(p.logger, "playback_context", playback)
		return ErrDisconnected
	}

	mic, err := p.backend.OpenMicrophone(capture, p.cfg.FrameSize)
	if err != nil {
		return p.fail(gen, fmt.Errorf("open microphone: %w", err))
	}
	if !p.keep(gen, func() { p.mic = mic }) {
		closeQuietly(p.logger, "microphone", mic)
		return ErrDisconnected
	}

	// Disconnect aborts a dial in progress.
	dialCtx, stopDial := context.WithCancel(ctx)
	unregister := context.AfterFunc(runCtx, stopDial)
	sess, err := p.dialer.Dial(dialCtx, p.cfg.Session)
	unregister()
	stopDial()
	if err != nil {
		return p.fail(gen, fmt.Errorf("dial realtime session: %w", err))
	}
	if !p.keep(gen, func() { p.session = sess }) {
		closeQuietly(p.logger, "session", sess)
		return ErrDisconnected
	}

	if !p.keep(gen, func() { p.state = StateStreaming }) {
		return ErrDisconnected
	}
	notifyState(h, StateStreaming)
	p.logger.Info("voice_connected", "model", p.cfg.Session.Model, "voice", p.cfg.Session.VoiceName)

	go p.captureLoop(runCtx, gen, mic, sess)
	go p.receiveLoop(runCtx, gen, sess, sched)
	return nil
}

// Disconnect releases every resource exactly once and moves to StateClosed.
// It is safe to call at any time, from any goroutine, any number of times.
func (p *Pipeline) Disconnect() {
	p.shutdown(0, nil)
}

// shutdown releases the live resources. A non-zero gen limits it to that
// connect attempt. A non-nil cause reaches OnError before StateClosed is
// reported.
func (p *Pipeline) shutdown(gen uint64, cause error) {
	p.mu.Lock()
	if !p.state.live() || (gen != 0 && p.gen != gen) {
		p.mu.Unlock()
		return
	}
	p.gen++
	cancel := p.cancel
	sched, mic, sess := p.sched, p.mic, p.session
	capture, playback := p.capture, p.playback
	p.cancel, p.sched, p.mic, p.session = nil, nil, nil, nil
	p.capture, p.playback = nil, nil
	p.state = StateClosed
	h := p.handlers
	p.handlers = Handlers{}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sched != nil {
		sched.Close()
	}
	if mic != nil {
		closeQuietly(p.logger, "microphone", mic)
	}
	if capture != nil {
		closeQuietly(p.logger, "capture_context", capture)
	}
	if playback != nil {
		closeQuietly(p.logger, "playback_context", playback)
	}
	if sess != nil {
		closeQuietly(p.logger, "session", sess)
	}

	p.logger.Info("voice_disconnected")
	if cause != nil && h.OnError != nil {
		h.OnError(cause)
	}
	notifyState(h, StateClosed)
}

// =============================================================================
// LOOPS
// =============================================================================

func (p *Pipeline) captureLoop(ctx context.Context, gen uint64, mic Microphone, sess Session) {
	for {
		frame, err := mic.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.abort(gen, fmt.Errorf("read microphone: %w", err))
			}
			return
		}
		if err := sess.SendAudio(ctx, EncodeBlob(frame, p.cfg.CaptureRate)); err != nil {
			if ctx.Err() == nil {
				p.abort(gen, fmt.Errorf("send audio: %w", err))
			}
			return
		}
	}
}

func (p *Pipeline) receiveLoop(ctx context.Context, gen uint64, sess Session, sched *Scheduler) {
	for {
		ev, err := sess.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				p.logger.Info("voice_session_closed")
				p.disconnectGen(gen)
				return
			}
			p.abort(gen, fmt.Errorf("receive: %w", err))
			return
		}
		if ctx.Err() != nil {
			return
		}
		p.dispatch(gen, sched, ev)
	}
}

// dispatch applies one event: transcript first, then audio, then interruption.
func (p *Pipeline) dispatch(gen uint64, sched *Scheduler, ev Event) {
	h, ok := p.handlersFor(gen)
	if !ok {
		return
	}

	if ev.Transcript != "" && h.OnMessage != nil {
		h.OnMessage(ev.Transcript)
	}

	if ev.Audio != "" {
		samples, err := DecodeAudio(ev.Audio)
		if err != nil {
			p.logger.Warn("voice_audio_dropped", "err", err)
		} else if _, err := sched.Schedule(samples); err != nil && !errors.Is(err, ErrSchedulerClosed) {
			p.logger.Warn("voice_audio_dropped", "err", err)
		}
		p.transition(gen, h, StateStreaming)
	}

	if ev.Interrupted {
		sched.Flush()
		p.transition(gen, h, StateInterrupted)
		if h.OnInterrupted != nil {
			h.OnInterrupted()
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// keep runs store under the lock if the connect attempt gen is still current.
func (p *Pipeline) keep(gen uint64, store func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || !p.state.live() {
		return false
	}
	store()
	return true
}

func (p *Pipeline) handlersFor(gen uint64) (Handlers, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || !p.state.live() {
		return Handlers{}, false
	}
	return p.handlers, true
}

func (p *Pipeline) transition(gen uint64, h Handlers, to State) {
	p.mu.Lock()
	if p.gen != gen || !p.state.live() || p.state == to {
		p.mu.Unlock()
		return
	}
	p.state = to
	p.mu.Unlock()
	notifyState(h, to)
}

func (p *Pipeline) disconnectGen(gen uint64) {
	p.shutdown(gen, nil)
}

func (p *Pipeline) fail(gen uint64, err error) error {
	p.logger.Warn("voice_connect_failed", "err", err)
	p.disconnectGen(gen)
	return err
}

func (p *Pipeline) abort(gen uint64, err error) {
	if _, ok := p.handlersFor(gen); !ok {
		return
	}
	p.logger.Error("voice_failed", "err", err)
	p.shutdown(gen, err)
}

func notifyState(h Handlers, s State) {
	if h.OnStateChange != nil {
		h.OnStateChange(s)
	}
}

func closeQuietly(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Debug("voice_close_failed", "resource", what, "err", err)
	}
}

// CheckEndpoint accepts the SDK default (empty), https and wss URLs, and
// any loopback host.
func CheckEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsecureContext, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return nil
	}
	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return ErrInsecureContext
}
