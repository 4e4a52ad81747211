package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boardwar/backend/internal/models"
	"github.com/boardwar/backend/internal/profile"
	"github.com/stretchr/testify/require"
)

// --- connections ---

var connSeq atomic.Int64

type sentEvent struct {
	Event   string
	Payload json.RawMessage
}

type testConn struct {
	id       string
	identity PlayerIdentity

	mu     sync.Mutex
	events []sentEvent
	closed bool
	reason string
}

func newTestConn(playerID string, rating int) *testConn {
	return &testConn{
		id:       fmt.Sprintf("%s-conn-%d", playerID, connSeq.Add(1)),
		identity: PlayerIdentity{ID: playerID, Name: "name-" + playerID, Skins: json.RawMessage(`{"board":"oak"}`), Rating: rating},
	}
}

func (c *testConn) ID() string               { return c.id }
func (c *testConn) Identity() PlayerIdentity { return c.identity }

func (c *testConn) Send(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.events = append(c.events, sentEvent{Event: event, Payload: data})
	return nil
}

func (c *testConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.reason = reason
}

func (c *testConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *testConn) named(event string) []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []json.RawMessage
	for _, e := range c.events {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// gameMessages returns game_message payloads whose "type" is kind.
func (c *testConn) gameMessages(kind string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, raw := range c.named(EventGameMessage) {
		var msg map[string]interface{}
		if json.Unmarshal(raw, &msg) == nil && msg["type"] == kind {
			out = append(out, msg)
		}
	}
	return out
}

func (c *testConn) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// --- timers ---

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
	s       *fakeScheduler
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f, s: s}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs a pending timer's callback.
func (s *fakeScheduler) fire(t *fakeTimer) {
	s.mu.Lock()
	if t.stopped || t.fired {
		s.mu.Unlock()
		return
	}
	t.fired = true
	s.mu.Unlock()
	t.f()
}

// forceFire runs the callback even if the timer was stopped, as when Stop
// loses the race against expiry.
func (s *fakeScheduler) forceFire(t *fakeTimer) {
	s.mu.Lock()
	t.fired = true
	s.mu.Unlock()
	t.f()
}

func (s *fakeScheduler) fireAll() {
	for _, t := range s.pending() {
		s.fire(t)
	}
}

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- stores ---

type failingStore struct{}

func (failingStore) FindByID(context.Context, string) (*models.Profile, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) Upsert(context.Context, string, profile.Fields) (*models.Profile, error) {
	return nil, errors.New("store unavailable")
}

// --- harness ---

type harness struct {
	m     *Manager
	sched *fakeScheduler
	clock *fakeClock
	store *profile.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sched: &fakeScheduler{},
		clock: &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		store: profile.NewMemoryStore(1200),
	}
	h.m = NewManager(h.store, DefaultSettings(), WithScheduler(h.sched), WithClock(h.clock.Now))
	return h
}

func (h *harness) seed(t *testing.T, playerID string, rating int) {
	t.Helper()
	_, err := h.store.Upsert(context.Background(), playerID, profile.Fields{Rating: profile.Int(rating)})
	require.NoError(t, err)
}

func (h *harness) connect(playerID string, rating int) *testConn {
	c := newTestConn(playerID, rating)
	h.m.Connect(c)
	return c
}

func (h *harness) rating(t *testing.T, playerID string) *models.Profile {
	t.Helper()
	p, err := h.store.FindByID(context.Background(), playerID)
	require.NoError(t, err)
	return p
}

// startMatch pairs a (player 1) and b directly, bypassing queue rules.
func startMatch(m *Manager, a, b Conn, mode Mode) *Match {
	m.mu.Lock()
	match := m.startMatchLocked(
		QueueEntry{Conn: a, Identity: a.Identity(), JoinedAt: m.now()},
		QueueEntry{Conn: b, Identity: b.Identity(), JoinedAt: m.now()},
		mode)
	m.mu.Unlock()
	m.announce(match)
	return match
}

func matchOf(m *Manager, playerID string) *Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchFor(playerID)
}

func stateOf(m *Manager, match *Match) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return match.State
}
