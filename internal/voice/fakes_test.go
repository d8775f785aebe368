// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

type fakeSource struct {
	at      float64
	n       int
	stopped atomic.Int32
	once    sync.Once
	done    chan struct{}
}

func (s *fakeSource) Stop() {
	s.stopped.Add(1)
	s.finish()
}

func (s *fakeSource) finish() { s.once.Do(func() { close(s.done) }) }

func (s *fakeSource) Done() <-chan struct{} { return s.done }

type fakeContext struct {
	rate   int
	mu     sync.Mutex
	now    float64
	starts []*fakeSource
	closes atomic.Int32
}

func (c *fakeContext) SampleRate() int { return c.rate }

func (c *fakeContext) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeContext) setTime(t float64) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeContext) Start(samples []float32, at float64) (Source, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := &fakeSource{at: at, n: len(samples), done: make(chan struct{})}
	c.starts = append(c.starts, src)
	return src, nil
}

func (c *fakeContext) started() []*fakeSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeSource(nil), c.starts...)
}

func (c *fakeContext) Close() error {
	c.closes.Add(1)
	return nil
}

type fakeMic struct {
	frames chan []float32
	closes atomic.Int32
}

func (m *fakeMic) ReadFrame(ctx context.Context) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-m.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

func (m *fakeMic) Close() error {
	m.closes.Add(1)
	return nil
}

type fakeBackend struct {
	mu       sync.Mutex
	contexts []*fakeContext
	mic      *fakeMic
	micErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{mic: &fakeMic{frames: make(chan []float32, 16)}}
}

func (b *fakeBackend) NewContext(rate int) (AudioContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &fakeContext{rate: rate}
	b.contexts = append(b.contexts, c)
	return c, nil
}

func (b *fakeBackend) OpenMicrophone(AudioContext, int) (Microphone, error) {
	if b.micErr != nil {
		return nil, b.micErr
	}
	return b.mic, nil
}

func (b *fakeBackend) allContexts() []*fakeContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeContext(nil), b.contexts...)
}

type fakeSession struct {
	events chan Event
	errs   chan error
	sent   chan Blob
	closes atomic.Int32
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		events: make(chan Event, 16),
		errs:   make(chan error, 1),
		sent:   make(chan Blob, 64),
	}
}

func (s *fakeSession) SendAudio(ctx context.Context, b Blob) error {
	select {
	case s.sent <- b:
	default:
	}
	return nil
}

func (s *fakeSession) Recv(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case err := <-s.errs:
		return Event{}, err
	case ev := <-s.events:
		return ev, nil
	}
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeDialer struct {
	session *fakeSession
	err     error
	gotCfg  SessionConfig

	// block, when set, holds Dial until it is closed or ctx ends.
	block   chan struct{}
	entered chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, cfg SessionConfig) (Session, error) {
	d.gotCfg = cfg
	if d.entered != nil {
		close(d.entered)
	}
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}
