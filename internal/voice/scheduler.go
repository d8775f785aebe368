// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSchedulerClosed is returned by Schedule after Close.
var ErrSchedulerClosed = errors.New("playback scheduler closed")

// Scheduler queues decoded chunks on a playback context so consecutive
// chunks play back to back.
type Scheduler struct {
	mu      sync.Mutex
	ac      AudioContext
	next    float64
	sources map[Source]struct{}
	closed  bool
}

// NewScheduler creates a scheduler bound to a playback context.
func NewScheduler(ac AudioContext) *Scheduler {
	return &Scheduler{
		ac:      ac,
		sources: make(map[Source]struct{}),
	}
}

// Schedule starts samples at max(next, currentTime) and advances next by
// the chunk duration. It returns the start time.
func (s *Scheduler) Schedule(samples []float32) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSchedulerClosed
	}

	if now := s.ac.CurrentTime(); now > s.next {
		s.next = now
	}
	start := s.next

	src, err := s.ac.Start(samples, start)
	if err != nil {
		return 0, fmt.Errorf("schedule chunk: %w", err)
	}
	s.next += Duration(len(samples), s.ac.SampleRate())
	s.sources[src] = struct{}{}

	go func() {
		<-src.Done()
		s.mu.Lock()
		delete(s.sources, src)
		s.mu.Unlock()
	}()

	return start, nil
}

// Flush stops every tracked source and resets the timeline.
func (s *Scheduler) Flush() {
	s.stopAll(false)
}

// Close flushes and rejects any later Schedule call.
func (s *Scheduler) Close() {
	s.stopAll(true)
}

func (s *Scheduler) stopAll(closing bool) {
	s.mu.Lock()
	if closing {
		s.closed = true
	}
	srcs := make([]Source, 0, len(s.sources))
	for src := range s.sources {
		srcs = append(srcs, src)
	}
	s.sources = make(map[Source]struct{})
	s.next = 0
	s.mu.Unlock()

	for _, src := range srcs {
		src.Stop()
	}
}

// Pending returns the number of sources still playing or queued.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Next returns the time at which the next chunk would start.
func (s *Scheduler) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
