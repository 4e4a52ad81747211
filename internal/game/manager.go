package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/events"
	"github.com/boardwar/backend/internal/profile"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAlreadyInMatch = errors.New("player already in an active match")
	ErrNotInMatch     = errors.New("player not in an active match")
	ErrUnknownResult  = errors.New("unknown game result")
)

// Settings are the tunables of the session core.
type Settings struct {
	Tolerance     ToleranceRules
	Rating        RatingRules
	DefaultRating int
	ClockStart    float64
	RankedGrace   time.Duration
	CasualGrace   time.Duration
	CleanupDelay  time.Duration
	StoreTimeout  time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Tolerance:     ToleranceRules{BasePct: 5, StepPct: 5, MaxPct: 30, Window: 10 * time.Second},
		Rating:        DefaultRatingRules(),
		DefaultRating: 1200,
		ClockStart:    600,
		RankedGrace:   60 * time.Second,
		CasualGrace:   30 * time.Second,
		CleanupDelay:  60 * time.Second,
		StoreTimeout:  3 * time.Second,
	}
}

func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	s.Tolerance = ToleranceRules{
		BasePct: float64(cfg.ToleranceBasePct),
		StepPct: float64(cfg.ToleranceStepPct),
		MaxPct:  float64(cfg.ToleranceMaxPct),
		Window:  time.Duration(cfg.ToleranceWindowSeconds) * time.Second,
	}
	s.DefaultRating = cfg.DefaultRating
	s.ClockStart = float64(cfg.ClockStartSeconds)
	s.RankedGrace = time.Duration(cfg.RankedGraceSeconds) * time.Second
	s.CasualGrace = time.Duration(cfg.CasualGraceSeconds) * time.Second
	s.CleanupDelay = time.Duration(cfg.CleanupDelaySeconds) * time.Second
	s.StoreTimeout = time.Duration(cfg.StoreTimeoutMs) * time.Millisecond
	return s
}

// GraceFor is how long an absent player of this mode has to come back.
func (s Settings) GraceFor(mode Mode) time.Duration {
	if mode.IsRanked() {
		return s.RankedGrace
	}
	return s.CasualGrace
}

// Manager coordinates connections, queues, matches and their timers. Every
// state transition runs under mu; profile store I/O runs outside it.
type Manager struct {
	mu              sync.Mutex
	registry        *Registry
	queues          *Queues
	matches         map[string]*Match // room id -> match
	playerToMatch   map[string]string // player id -> room id
	reconnectTimers map[string]*roomTimer
	cleanupTimers   map[string]*roomTimer

	store     profile.Store
	publisher events.Publisher
	sched     Scheduler
	now       func() time.Time
	log       *zap.Logger
	settings  Settings

	matchesStarted int64
	settlements    int64
	walkovers      int64
	rematches      int64
}

type Option func(*Manager)

func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.sched = s }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func NewManager(store profile.Store, settings Settings, opts ...Option) *Manager {
	m := &Manager{
		registry:        NewRegistry(),
		queues:          NewQueues(),
		matches:         make(map[string]*Match),
		playerToMatch:   make(map[string]string),
		reconnectTimers: make(map[string]*roomTimer),
		cleanupTimers:   make(map[string]*roomTimer),
		store:           store,
		publisher:       events.Nop{},
		sched:           realScheduler{},
		now:             time.Now,
		log:             zap.NewNop(),
		settings:        settings,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry exposes the connection registry for read-only lookups.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Connect registers c as its identity's live connection, evicting any older
// one, and resumes the identity's unfinished match if there is one.
func (m *Manager) Connect(c Conn) {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	if evicted := m.registry.Register(id, c); evicted != nil {
		m.queues.PurgeConn(evicted.ID())
		m.log.Info("ghost connection evicted", zap.String("player", id), zap.String("conn", evicted.ID()))
	}
	m.log.Info("player connected", zap.String("player", id), zap.String("conn", c.ID()))

	if match := m.findExistingMatchFor(id); match != nil {
		m.rejoin(match, c)
	}
}

// Disconnect handles a closed connection. Only the identity's current
// connection can put its match into the walkover countdown.
func (m *Manager) Disconnect(c Conn) {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	m.queues.PurgeConn(c.ID())
	if !m.registry.Unregister(id, c) {
		m.log.Debug("stale connection closed", zap.String("player", id), zap.String("conn", c.ID()))
		return
	}
	m.log.Info("player disconnected", zap.String("player", id))

	match := m.findExistingMatchFor(id)
	if match == nil || match.State != StateActive {
		return
	}
	m.beginAwaitingReturn(match, id)
}

// FindMatch puts the player in the queue for the requested mode. FIFO modes
// pair straight away; ranked waits for the sweep.
func (m *Manager) FindMatch(c Conn, rawMode []byte) error {
	identity := c.Identity()
	mode := ParseMode(rawMode)

	m.mu.Lock()
	if m.findExistingMatchFor(identity.ID) != nil {
		m.mu.Unlock()
		c.Send(EventMatchError, MatchError{Message: "You are already in an active match"})
		return fmt.Errorf("find match for %s: %w", identity.ID, ErrAlreadyInMatch)
	}
	m.queues.Purge(identity.ID)
	m.leaveFinishedMatch(identity.ID)
	m.mu.Unlock()

	m.log.Info("searching", zap.String("player", identity.ID), zap.String("mode", string(mode)))

	if mode.IsRanked() {
		ctx, cancel := context.WithTimeout(context.Background(), m.settings.StoreTimeout)
		identity.Rating = m.loadRating(ctx, identity.ID, identity.Rating)
		cancel()
	}

	m.mu.Lock()
	// The connection may have been replaced, or the player matched, while the store was read.
	if cur, ok := m.registry.Lookup(identity.ID); !ok || cur.ID() != c.ID() {
		m.mu.Unlock()
		return nil
	}
	if m.findExistingMatchFor(identity.ID) != nil {
		m.mu.Unlock()
		c.Send(EventMatchError, MatchError{Message: "You are already in an active match"})
		return fmt.Errorf("find match for %s: %w", identity.ID, ErrAlreadyInMatch)
	}
	m.queues.Purge(identity.ID)

	entry := QueueEntry{Conn: c, Identity: identity, JoinedAt: m.now()}
	if mode.IsRanked() {
		m.queues.Push(mode, entry)
		m.mu.Unlock()
		c.Send(EventStatus, StatusMessage{Text: "Searching for a ranked match..."})
		return nil
	}

	opponent, dropped, ok := m.queues.PopLive(mode, identity.ID, m.isStale)
	if !ok {
		m.queues.Push(mode, entry)
		m.mu.Unlock()
		text := "Searching for a casual match..."
		if dropped > 0 {
			text = "Opponent in queue dropped. Waiting..."
		}
		c.Send(EventStatus, StatusMessage{Text: text})
		return nil
	}
	match := m.startMatchLocked(opponent, entry, mode)
	m.mu.Unlock()

	m.announce(match)
	return nil
}

// LeaveQueue drops the player from every queue.
func (m *Manager) LeaveQueue(c Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := m.queues.Purge(c.Identity().ID)
	if removed {
		m.log.Info("left queue", zap.String("player", c.Identity().ID))
	}
	return removed
}

// SweepRanked pairs the ranked queue until no acceptable pair remains and
// returns how many matches it started.
func (m *Manager) SweepRanked() int {
	m.mu.Lock()
	var started []*Match
	for {
		a, b, ok := m.queues.ScanAndPair(ModeRanked, m.now(), m.settings.Tolerance, m.isStale)
		if !ok {
			break
		}
		started = append(started, m.startMatchLocked(a, b, ModeRanked))
	}
	m.mu.Unlock()

	for _, match := range started {
		m.announce(match)
	}
	return len(started)
}

// isStale reports whether an entry's connection is no longer its identity's live one.
func (m *Manager) isStale(e QueueEntry) bool {
	if !e.Conn.Alive() {
		return true
	}
	cur, ok := m.registry.Lookup(e.Identity.ID)
	return !ok || cur.ID() != e.Conn.ID()
}

// findExistingMatchFor returns the player's unfinished match, if any.
func (m *Manager) findExistingMatchFor(playerID string) *Match {
	match := m.matchFor(playerID)
	if match == nil || match.IsFinished() {
		return nil
	}
	return match
}

// matchFor returns whatever match the player is indexed to, finished or not.
func (m *Manager) matchFor(playerID string) *Match {
	roomID, ok := m.playerToMatch[playerID]
	if !ok {
		return nil
	}
	match, ok := m.matches[roomID]
	if !ok || !match.Has(playerID) {
		return nil
	}
	return match
}

// startMatchLocked creates the room; a becomes player 1.
func (m *Manager) startMatchLocked(a, b QueueEntry, mode Mode) *Match {
	match := newMatch(uuid.NewString(), participantFrom(a.Identity), participantFrom(b.Identity), mode, m.settings.ClockStart, m.now())
	m.matches[match.RoomID] = match
	m.playerToMatch[a.Identity.ID] = match.RoomID
	m.playerToMatch[b.Identity.ID] = match.RoomID
	m.matchesStarted++

	m.log.Info("match started",
		zap.String("room", match.RoomID),
		zap.String("mode", string(mode)),
		zap.String("p1", match.P1.ID),
		zap.String("p2", match.P2.ID))

	m.publish(events.MatchStarted, map[string]interface{}{
		"roomId": match.RoomID,
		"mode":   mode,
		"p1":     match.P1.ID,
		"p2":     match.P2.ID,
	})
	return match
}

// announce refreshes both ratings from the store and sends match_found.
func (m *Manager) announce(match *Match) {
	m.mu.Lock()
	p1, p2 := match.P1, match.P2
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.settings.StoreTimeout)
	r1 := m.loadRating(ctx, p1.ID, p1.Rating)
	r2 := m.loadRating(ctx, p2.ID, p2.Rating)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.matches[match.RoomID] != match {
		return
	}
	match.P1.Rating = r1
	match.P2.Rating = r2

	if c, ok := m.registry.Lookup(match.P1.ID); ok {
		c.Send(EventMatchFound, MatchFound{IsPlayer1: true, Opponent: match.P2.public(), Mode: match.Mode})
	}
	if c, ok := m.registry.Lookup(match.P2.ID); ok {
		c.Send(EventMatchFound, MatchFound{IsPlayer1: false, Opponent: match.P1.public(), Mode: match.Mode})
	}
}

// loadRating reads the stored rating; a missing profile yields the default
// rating, a store failure keeps fallback.
func (m *Manager) loadRating(ctx context.Context, playerID string, fallback int) int {
	p, err := m.store.FindByID(ctx, playerID)
	if errors.Is(err, profile.ErrNotFound) {
		return m.settings.DefaultRating
	}
	if err != nil {
		m.log.Warn("rating refresh failed", zap.String("player", playerID), zap.Error(err))
		if fallback <= 0 {
			return m.settings.DefaultRating
		}
		return fallback
	}
	return p.Rating
}

// sendTo delivers to the player's live connection, if any.
func (m *Manager) sendTo(playerID, event string, payload interface{}) bool {
	c, ok := m.registry.Lookup(playerID)
	if !ok {
		return false
	}
	if err := c.Send(event, payload); err != nil {
		m.log.Debug("send failed", zap.String("player", playerID), zap.String("event", event), zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) sendToRoom(match *Match, event string, payload interface{}) {
	m.sendTo(match.P1.ID, event, payload)
	m.sendTo(match.P2.ID, event, payload)
}

func (m *Manager) publish(event string, payload interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.settings.StoreTimeout)
		defer cancel()
		if err := m.publisher.Publish(ctx, event, payload); err != nil {
			m.log.Warn("event publish failed", zap.String("event", event), zap.Error(err))
		}
	}()
}

// QueueStats is a point-in-time view of the queues.
type QueueStats struct {
	Queues      map[Mode]int `json:"queues"`
	Connections int          `json:"connections"`
}

func (m *Manager) QueueStats() QueueStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return QueueStats{Queues: m.queues.Sizes(), Connections: m.registry.Len()}
}

// MatchStats counts matches by state plus lifetime totals.
type MatchStats struct {
	Active           int   `json:"active"`
	AwaitingReturn   int   `json:"awaitingReturn"`
	Settling         int   `json:"settling"`
	Finished         int   `json:"finished"`
	PendingWalkovers int   `json:"pendingWalkovers"`
	Started          int64 `json:"started"`
	Settled          int64 `json:"settled"`
	Walkovers        int64 `json:"walkovers"`
	Rematches        int64 `json:"rematches"`
}

func (m *Manager) MatchStats() MatchStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := MatchStats{
		PendingWalkovers: len(m.reconnectTimers),
		Started:          m.matchesStarted,
		Settled:          m.settlements,
		Walkovers:        m.walkovers,
		Rematches:        m.rematches,
	}
	for _, match := range m.matches {
		switch match.State {
		case StateActive:
			stats.Active++
		case StateAwaitingReturn:
			stats.AwaitingReturn++
		case StateSettlementInFlight:
			stats.Settling++
		case StateFinished:
			stats.Finished++
		}
	}
	return stats
}
