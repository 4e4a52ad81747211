package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/boardwar/backend/internal/models"
	"github.com/boardwar/backend/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedPair(t *testing.T, h *harness, ra, rb int) (*testConn, *testConn, *Match) {
	t.Helper()
	h.seed(t, "a", ra)
	h.seed(t, "b", rb)
	a := h.connect("a", ra)
	b := h.connect("b", rb)
	return a, b, startMatch(h.m, a, b, ModeRanked)
}

func TestRegicideExample(t *testing.T) {
	h := newHarness(t)
	a, b, match := rankedPair(t, h, 1200, 1200)

	settled, err := h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "regicide", MyScore: 58, OppScore: 0})
	require.NoError(t, err)
	require.True(t, settled)

	assert.Equal(t, StateFinished, stateOf(h.m, match))
	assert.True(t, match.EloApplied)

	assert.Equal(t, 1225, h.rating(t, "a").Rating)
	assert.Equal(t, 1, h.rating(t, "a").Wins)
	assert.Equal(t, 1180, h.rating(t, "b").Rating)
	assert.Equal(t, 1, h.rating(t, "b").Losses)

	ua := decode[RatingUpdate](t, a.named(EventEloUpdate)[0])
	ub := decode[RatingUpdate](t, b.named(EventEloUpdate)[0])
	assert.Equal(t, 25, ua.Delta)
	assert.Equal(t, "Gold", ua.RankLabel)
	assert.Equal(t, -20, ub.Delta)
	assert.LessOrEqual(t, ub.Delta, 0)

	overA := decode[GameOver](t, a.named(EventGameMessage)[len(a.named(EventGameMessage))-1])
	overB := b.gameMessages(MsgGameOver)[0]
	assert.Equal(t, GameOver{Type: MsgGameOver, Reason: ReasonRegicide, Result: "win", WinnerID: "a"}, overA)
	assert.Equal(t, "loss", overB["result"])
	assert.Equal(t, "a", overB["winnerId"])
}

func TestDuplicateReportsSettleOnce(t *testing.T) {
	h := newHarness(t)
	a, b, _ := rankedPair(t, h, 1200, 1200)

	settled, err := h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "timeout"})
	require.NoError(t, err)
	assert.True(t, settled)

	settled, err = h.m.ReportGameOver(b, GameOverReport{Result: "win", Reason: "regicide"})
	require.NoError(t, err)
	assert.False(t, settled)
	settled, err = h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "timeout"})
	require.NoError(t, err)
	assert.False(t, settled)

	assert.Equal(t, 1220, h.rating(t, "a").Rating)
	assert.Equal(t, 1180, h.rating(t, "b").Rating)
	assert.Len(t, a.named(EventEloUpdate), 1)
	assert.Len(t, b.gameMessages(MsgGameOver), 1)
	assert.Equal(t, int64(1), h.m.MatchStats().Settled)
}

func TestReportedLossCreditsOpponent(t *testing.T) {
	h := newHarness(t)
	_, b, _ := rankedPair(t, h, 1200, 1200)

	_, err := h.m.ReportGameOver(b, GameOverReport{Result: "defeat", Reason: "regicide", MyScore: 50, OppScore: 58})
	require.NoError(t, err)

	assert.Equal(t, 1225, h.rating(t, "a").Rating)
	assert.Equal(t, 1190, h.rating(t, "b").Rating, "close score softens the loss")
}

// blockingStore holds FindByID open while armed so a settlement can be
// observed mid-flight.
type blockingStore struct {
	*profile.MemoryStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if s.armed.Load() {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}
	return s.MemoryStore.FindByID(ctx, id)
}

func TestReportDuringSettlementIsRejected(t *testing.T) {
	h := newHarness(t)
	store := &blockingStore{MemoryStore: h.store, entered: make(chan struct{}), release: make(chan struct{})}
	h.m = NewManager(store, DefaultSettings(), WithScheduler(h.sched), WithClock(h.clock.Now))
	a, b, match := rankedPair(t, h, 1200, 1200)

	store.armed.Store(true)
	done := make(chan bool)
	go func() {
		settled, _ := h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "regicide"})
		done <- settled
	}()
	<-store.entered

	assert.Equal(t, StateSettlementInFlight, stateOf(h.m, match))
	assert.Equal(t, 1, h.m.MatchStats().Settling)
	settled, err := h.m.ReportGameOver(b, GameOverReport{Result: "win", Reason: "regicide"})
	require.NoError(t, err)
	assert.False(t, settled, "second report rejected while the first is in flight")
	assert.Error(t, h.m.ApplyMove(b, []byte(`{}`)), "no moves once settlement started")

	close(store.release)
	assert.True(t, <-done)

	assert.Equal(t, 1225, h.rating(t, "a").Rating)
	assert.Equal(t, 1180, h.rating(t, "b").Rating)
}

func TestStoreFailureStillBroadcasts(t *testing.T) {
	h := newHarness(t)
	h.m = NewManager(failingStore{}, DefaultSettings(), WithScheduler(h.sched), WithClock(h.clock.Now))
	a := h.connect("a", 1300)
	b := h.connect("b", 1100)
	match := startMatch(h.m, a, b, ModeRanked)

	found := decode[MatchFound](t, a.named(EventMatchFound)[0])
	assert.Equal(t, 1100, found.Opponent.Elo, "cached rating kept when the store is down")

	settled, err := h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "regicide"})
	require.NoError(t, err)
	assert.True(t, settled)

	assert.Len(t, a.gameMessages(MsgGameOver), 1)
	assert.Len(t, b.gameMessages(MsgGameOver), 1)
	assert.Empty(t, a.named(EventEloUpdate))
	assert.Equal(t, StateFinished, stateOf(h.m, match))
	assert.False(t, match.EloApplied)
	assert.Len(t, h.sched.pending(), 1, "cleanup still scheduled")
}

func TestUnrankedSettlementLeavesRatings(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)
	b := h.connect("b", 1200)
	match := startMatch(h.m, a, b, ModeFriendly)

	_, err := h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "regicide"})
	require.NoError(t, err)

	assert.Len(t, b.gameMessages(MsgGameOver), 1)
	assert.Empty(t, a.named(EventEloUpdate))
	assert.False(t, match.EloApplied)
	_, err = h.store.FindByID(context.Background(), "a")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestDrawSettlesWithoutRatingChange(t *testing.T) {
	h := newHarness(t)
	a, b, match := rankedPair(t, h, 1250, 1150)

	settled, err := h.m.ReportGameOver(b, GameOverReport{Result: "draw", Reason: "agreement"})
	require.NoError(t, err)
	assert.True(t, settled)

	for _, c := range []*testConn{a, b} {
		over := c.gameMessages(MsgGameOver)
		require.Len(t, over, 1)
		assert.Equal(t, "draw", over[0]["result"])
		_, hasWinner := over[0]["winnerId"]
		assert.False(t, hasWinner)
	}
	assert.Equal(t, 1250, h.rating(t, "a").Rating)
	assert.Equal(t, 1150, h.rating(t, "b").Rating)
	assert.True(t, match.IsFinished())
}

func TestUnknownResultIsRejected(t *testing.T) {
	h := newHarness(t)
	a, _, match := rankedPair(t, h, 1200, 1200)

	settled, err := h.m.ReportGameOver(a, GameOverReport{Result: "abandoned"})
	assert.False(t, settled)
	assert.True(t, errors.Is(err, ErrUnknownResult))
	assert.Len(t, a.named(EventMatchError), 1)
	assert.Equal(t, StateActive, stateOf(h.m, match))
}

func TestReportWithoutMatch(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)

	_, err := h.m.ReportGameOver(a, GameOverReport{Result: "win"})
	assert.ErrorIs(t, err, ErrNotInMatch)
}

func TestCleanupRemovesFinishedMatch(t *testing.T) {
	h := newHarness(t)
	a, _, _ := rankedPair(t, h, 1200, 1200)
	_, err := h.m.ReportGameOver(a, GameOverReport{Result: "win", Reason: "regicide"})
	require.NoError(t, err)

	require.NotNil(t, matchOf(h.m, "a"))
	h.sched.fireAll()

	assert.Nil(t, matchOf(h.m, "a"))
	assert.Nil(t, matchOf(h.m, "b"))
	stats := h.m.MatchStats()
	assert.Zero(t, stats.Finished)
	assert.Equal(t, int64(1), stats.Settled)
}

func TestLeaveGameSettlesAsQuit(t *testing.T) {
	h := newHarness(t)
	a, b, match := rankedPair(t, h, 1200, 1200)

	h.m.LeaveGame(a)

	assert.Equal(t, StateFinished, stateOf(h.m, match))
	over := b.gameMessages(MsgGameOver)
	require.Len(t, over, 1)
	assert.Equal(t, string(ReasonQuit), over[0]["reason"])
	assert.Equal(t, "win", over[0]["result"])
	assert.Equal(t, 1170, h.rating(t, "a").Rating)
	assert.Equal(t, 1218, h.rating(t, "b").Rating)
	assert.Nil(t, matchOf(h.m, "a"))
	assert.Len(t, a.gameMessages(MsgGameOver), 1, "the leaver is told too")
}
