// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tublox/tublox-tui/internal/logging"
	"github.com/tublox/tublox-tui/internal/model"
	"github.com/tublox/tublox-tui/internal/prompts"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Persister receives the full session list after every mutation.
type Persister interface {
	Save(sessions []*model.Session) error
}

// Streamer produces a reply for a conversation history.
type Streamer interface {
	StreamMessage(ctx context.Context, history []*model.Message, onFragment func(string), onComplete func([]model.Source)) error
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what changed.
type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
	EventFragment
	EventSources
	EventFailed
	EventFinished
	EventDeleted
	EventSelected
	EventReplaced
)

var eventNames = [...]string{
	EventCreated:  "created",
	EventUpdated:  "updated",
	EventFragment: "fragment",
	EventSources:  "sources",
	EventFailed:   "failed",
	EventFinished: "finished",
	EventDeleted:  "deleted",
	EventSelected: "selected",
	EventReplaced: "replaced",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event describes one applied mutation.
type Event struct {
	Kind      EventKind
	SessionID string
	MessageID string

	// Text carries the fragment for EventFragment.
	Text string
}

// Turn addresses one reply. History is what the model should see: every
// message up to and including the user's, without the placeholder.
type Turn struct {
	SessionID string
	MessageID string
	History   []*model.Message
}

// =============================================================================
// MANAGER
// =============================================================================

// Options configures a Manager. All fields are optional.
type Options struct {
	Persister Persister
	Logger    *slog.Logger
	Now       func() time.Time
}

// Manager owns the session list, the current session, and the stream slot.
type Manager struct {
	mu        sync.Mutex
	sessions  []*model.Session
	currentID string

	// inflight is the placeholder message id of the running stream.
	inflight string

	persister Persister
	logger    *slog.Logger
	now       func() time.Time
	listeners []func(Event)
}

// NewManager adopts sessions (for example the result of a load). When the
// list is empty a fresh session is created. The first session becomes
// current.
func NewManager(sessions []*model.Session, opts Options) *Manager {
	m := &Manager{
		persister: opts.Persister,
		logger:    logging.OrDefault(opts.Logger).With("component", "session"),
		now:       opts.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}

	for _, s := range sessions {
		if s != nil && len(s.Messages) > 0 {
			m.sessions = append(m.sessions, s.Clone())
		}
	}
	if len(m.sessions) == 0 {
		m.sessions = []*model.Session{model.NewSession(m.now())}
		m.persistLocked()
	}
	m.currentID = m.sessions[0].ID
	return m
}

// OnChange registers fn to receive every Event. Listeners run after the
// mutation is applied and saved, outside the manager lock.
func (m *Manager) OnChange(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateSession prepends a new session and makes it current.
func (m *Manager) CreateSession() *model.Session {
	m.mu.Lock()
	s := model.NewSession(m.now())
	m.sessions = append([]*model.Session{s}, m.sessions...)
	m.currentID = s.ID
	m.persistLocked()
	out := s.Clone()
	m.mu.Unlock()

	m.emit(Event{Kind: EventCreated, SessionID: s.ID})
	return out
}

// SendUserMessage appends text and an empty assistant placeholder to the
// current session. It does nothing and returns false when text is blank,
// a stream is already running, or there is no current session.
func (m *Manager) SendUserMessage(text string) (*Turn, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	m.mu.Lock()
	if m.inflight != "" {
		m.mu.Unlock()
		return nil, false
	}
	s := m.findLocked(m.currentID)
	if s == nil {
		m.mu.Unlock()
		return nil, false
	}

	now := m.now()
	if !s.HasUserMessage() {
		s.Title = model.DeriveTitle(text)
	}
	s.Append(model.NewMessage(model.RoleUser, text, now))
	s.LastModified = now

	history := make([]*model.Message, len(s.Messages))
	for i, msg := range s.Messages {
		history[i] = msg.Clone()
	}

	placeholder := model.NewMessage(model.RoleAssistant, "", now)
	s.Append(placeholder)
	m.inflight = placeholder.ID
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: EventUpdated, SessionID: s.ID, MessageID: placeholder.ID})
	return &Turn{SessionID: s.ID, MessageID: placeholder.ID, History: history}, true
}

// AppendFragment appends text to the turn's placeholder. If the session or
// message no longer exists the fragment is dropped.
func (m *Manager) AppendFragment(turn *Turn, text string) {
	m.mu.Lock()
	msg := m.targetLocked(turn)
	if msg == nil {
		m.mu.Unlock()
		m.logger.Debug("fragment_dropped", "session", turn.SessionID, "message", turn.MessageID)
		return
	}
	msg.Content += text
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: EventFragment, SessionID: turn.SessionID, MessageID: turn.MessageID, Text: text})
}

// AttachSources sets the citations of the turn's message.
func (m *Manager) AttachSources(turn *Turn, sources []model.Source) {
	m.mu.Lock()
	msg := m.targetLocked(turn)
	if msg == nil {
		m.mu.Unlock()
		m.logger.Debug("sources_dropped", "session", turn.SessionID, "message", turn.MessageID)
		return
	}
	msg.Sources = append([]model.Source(nil), sources...)
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: EventSources, SessionID: turn.SessionID, MessageID: turn.MessageID})
}

// FailStream replaces the turn's message with the fixed error text and
// releases the stream slot.
func (m *Manager) FailStream(turn *Turn) {
	m.mu.Lock()
	if msg := m.targetLocked(turn); msg != nil {
		msg.Content = prompts.StreamErrorText
		msg.Sources = nil
	}
	m.releaseLocked(turn)
	m.persistLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: EventFailed, SessionID: turn.SessionID, MessageID: turn.MessageID})
}

// FinishStream releases the stream slot held by turn.
func (m *Manager) FinishStream(turn *Turn) {
	m.mu.Lock()
	m.releaseLocked(turn)
	m.mu.Unlock()

	m.emit(Event{Kind: EventFinished, SessionID: turn.SessionID, MessageID: turn.MessageID})
}

// Respond runs one reply stream for turn. Fragments and sources are applied
// as they arrive. On failure the placeholder shows the error text and the
// error is returned. A stream cancelled through ctx keeps the partial reply.
// The stream slot is always released.
func (m *Manager) Respond(ctx context.Context, streamer Streamer, turn *Turn) error {
	defer m.FinishStream(turn)

	ctx = logging.WithSessionID(ctx, turn.SessionID)
	err := streamer.StreamMessage(ctx, turn.History,
		func(text string) { m.AppendFragment(turn, text) },
		func(sources []model.Source) { m.AttachSources(turn, sources) },
	)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		m.logger.Info("stream_cancelled", "session", turn.SessionID, "message", turn.MessageID)
		return err
	}
	if err != nil {
		m.logger.Warn("stream_failed", "session", turn.SessionID, "err", err)
		m.FailStream(turn)
		return err
	}
	return nil
}

// DeleteSession removes a session. When it was current, the most recently
// modified remaining session becomes current. Deleting the last session
// replaces it with a fresh one. It returns false for an unknown id.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	idx := -1
	for i, s := range m.sessions {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false
	}

	m.sessions = append(m.sessions[:idx:idx], m.sessions[idx+1:]...)
	events := []Event{{Kind: EventDeleted, SessionID: id}}

	if len(m.sessions) == 0 {
		s := model.NewSession(m.now())
		m.sessions = []*model.Session{s}
		m.currentID = s.ID
		events = append(events, Event{Kind: EventCreated, SessionID: s.ID})
	} else if m.currentID == id {
		m.currentID = model.SortByLastModified(m.sessions)[0].ID
		events = append(events, Event{Kind: EventSelected, SessionID: m.currentID})
	}
	m.persistLocked()
	m.mu.Unlock()

	m.emit(events...)
	return true
}

// SelectSession makes id current. A running stream is unaffected.
func (m *Manager) SelectSession(id string) bool {
	m.mu.Lock()
	if m.findLocked(id) == nil {
		m.mu.Unlock()
		return false
	}
	m.currentID = id
	m.mu.Unlock()

	m.emit(Event{Kind: EventSelected, SessionID: id})
	return true
}

// Replace adopts a list written by another process. It is ignored while a
// stream is running or when the list is empty. The current session is kept
// when it still exists.
func (m *Manager) Replace(sessions []*model.Session) bool {
	m.mu.Lock()
	if m.inflight != "" || len(sessions) == 0 {
		m.mu.Unlock()
		return false
	}
	next := make([]*model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s != nil && len(s.Messages) > 0 {
			next = append(next, s.Clone())
		}
	}
	if len(next) == 0 {
		m.mu.Unlock()
		return false
	}
	m.sessions = next
	if m.findLocked(m.currentID) == nil {
		m.currentID = next[0].ID
	}
	current := m.currentID
	m.mu.Unlock()

	m.logger.Info("sessions_replaced", "count", len(next))
	m.emit(Event{Kind: EventReplaced, SessionID: current})
	return true
}

// =============================================================================
// READERS
// =============================================================================

// Sessions returns a deep copy of the list in stored order.
func (m *Manager) Sessions() []*model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out
}

// DisplaySessions returns a deep copy ordered newest first.
func (m *Manager) DisplaySessions() []*model.Session {
	return model.SortByLastModified(m.Sessions())
}

// Current returns a copy of the current session.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(m.currentID).Clone()
}

// CurrentID returns the current session id.
func (m *Manager) CurrentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// Session returns a copy of the session with the given id, or nil.
func (m *Manager) Session(id string) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(id).Clone()
}

// Awaiting reports whether a reply stream is running.
func (m *Manager) Awaiting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight != ""
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Manager) findLocked(id string) *model.Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *Manager) targetLocked(turn *Turn) *model.Message {
	s := m.findLocked(turn.SessionID)
	if s == nil {
		return nil
	}
	return s.MessageByID(turn.MessageID)
}

func (m *Manager) releaseLocked(turn *Turn) {
	if m.inflight == turn.MessageID {
		m.inflight = ""
	}
}

func (m *Manager) persistLocked() {
	if m.persister == nil {
		return
	}
	if err := m.persister.Save(m.sessions); err != nil {
		m.logger.Error("sessions_save_failed", "err", err)
	}
}

// emit runs listeners outside the lock.
func (m *Manager) emit(events ...Event) {
	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// EventMsg carries a manager Event into a Bubble Tea program.
type EventMsg struct {
	Event Event
}

// Forward delivers every Event to send, typically (*tea.Program).Send, in
// order. Delivery happens on its own goroutine so a mutation made inside
// the program's Update never waits on the program. It stops when ctx is
// done.
func (m *Manager) Forward(ctx context.Context, send func(tea.Msg)) {
	var (
		mu      sync.Mutex
		pending []Event
		wake    = make(chan struct{}, 1)
	)
	m.OnChange(func(ev Event) {
		mu.Lock()
		pending = append(pending, ev)
		mu.Unlock()
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}
			mu.Lock()
			batch := pending
			pending = nil
			mu.Unlock()
			for _, ev := range batch {
				if ctx.Err() != nil {
					return
				}
				send(EventMsg{Event: ev})
			}
		}
	}()
}
