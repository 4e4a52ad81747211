package game

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMatchDefaultsToRanked(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)

	require.NoError(t, h.m.FindMatch(a, []byte(`{"mode":"speedrun"}`)))

	stats := h.m.QueueStats()
	assert.Equal(t, 1, stats.Queues[ModeRanked])
	assert.Equal(t, 1, stats.Connections)
	status := decode[StatusMessage](t, a.named(EventStatus)[0])
	assert.Contains(t, status.Text, "ranked")
}

func TestFindMatchFIFOPairsOnArrival(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)
	b := h.connect("b", 1200)

	require.NoError(t, h.m.FindMatch(a, []byte(`"friendly"`)))
	assert.Empty(t, a.named(EventMatchFound))
	require.NoError(t, h.m.FindMatch(b, []byte(`{"mode":"friendly"}`)))

	require.Len(t, a.named(EventMatchFound), 1)
	require.Len(t, b.named(EventMatchFound), 1)
	fa := decode[MatchFound](t, a.named(EventMatchFound)[0])
	fb := decode[MatchFound](t, b.named(EventMatchFound)[0])

	assert.True(t, fa.IsPlayer1, "the waiting player becomes player 1")
	assert.False(t, fb.IsPlayer1)
	assert.Equal(t, ModeFriendly, fa.Mode)
	assert.Equal(t, fa.Mode, fb.Mode)
	assert.Equal(t, "name-b", fa.Opponent.Name)
	assert.Equal(t, 1200, fa.Opponent.Elo)
	assert.JSONEq(t, `{"board":"oak"}`, string(fb.Opponent.Skins))

	match := matchOf(h.m, "a")
	require.NotNil(t, match)
	assert.Same(t, match, matchOf(h.m, "b"))
	assert.Equal(t, StateActive, match.State)
	assert.True(t, match.IsPlayer1Turn)
	assert.Equal(t, 600.0, match.P1Time)
	assert.Zero(t, h.m.QueueStats().Queues[ModeFriendly])
}

func TestFindMatchDropsStaleHead(t *testing.T) {
	h := newHarness(t)
	gone := h.connect("gone", 1200)
	b := h.connect("b", 1200)
	c := h.connect("c", 1200)

	require.NoError(t, h.m.FindMatch(gone, []byte(`"invite"`)))
	gone.Close("network")

	require.NoError(t, h.m.FindMatch(b, []byte(`"invite"`)))
	assert.Empty(t, b.named(EventMatchFound))
	status := decode[StatusMessage](t, b.named(EventStatus)[0])
	assert.Contains(t, status.Text, "dropped")
	assert.Equal(t, 1, h.m.QueueStats().Queues[ModeInvite])

	require.NoError(t, h.m.FindMatch(c, []byte(`"invite"`)))
	fb := decode[MatchFound](t, b.named(EventMatchFound)[0])
	assert.True(t, fb.IsPlayer1)
	assert.Nil(t, matchOf(h.m, "gone"))
}

func TestFindMatchMovesBetweenQueues(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)

	require.NoError(t, h.m.FindMatch(a, []byte(`"ranked"`)))
	require.NoError(t, h.m.FindMatch(a, []byte(`"minigame"`)))

	sizes := h.m.QueueStats().Queues
	assert.Zero(t, sizes[ModeRanked])
	assert.Equal(t, 1, sizes[ModeMinigame])

	assert.True(t, h.m.LeaveQueue(a))
	assert.Zero(t, h.m.QueueStats().Queues[ModeMinigame])
	assert.False(t, h.m.LeaveQueue(a))
}

func TestFindMatchWhileInMatchIsRejected(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)
	b := h.connect("b", 1200)
	match := startMatch(h.m, a, b, ModeRanked)

	err := h.m.FindMatch(a, []byte(`"friendly"`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyInMatch))

	require.Len(t, a.named(EventMatchError), 1)
	for _, n := range h.m.QueueStats().Queues {
		assert.Zero(t, n)
	}
	assert.Same(t, match, matchOf(h.m, "a"))
}

func TestRankedSweepWidensTolerance(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "low", 600)
	h.seed(t, "high", 779)
	low := h.connect("low", 1200)
	high := h.connect("high", 1200)

	require.NoError(t, h.m.FindMatch(low, []byte(`{"mode":"ranked"}`)))
	require.NoError(t, h.m.FindMatch(high, []byte(`{"mode":"ranked"}`)))

	assert.Zero(t, h.m.SweepRanked())
	h.clock.Advance(40 * time.Second)
	assert.Zero(t, h.m.SweepRanked(), "25% is not enough for 600 vs 779")
	h.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, h.m.SweepRanked())

	found := decode[MatchFound](t, low.named(EventMatchFound)[0])
	assert.True(t, found.IsPlayer1)
	assert.Equal(t, ModeRanked, found.Mode)
	assert.Equal(t, 779, found.Opponent.Elo, "rating refreshed from the store")
	assert.Equal(t, 600, decode[MatchFound](t, high.named(EventMatchFound)[0]).Opponent.Elo)
	assert.Zero(t, h.m.QueueStats().Queues[ModeRanked])
	assert.Equal(t, int64(1), h.m.MatchStats().Started)
}

func TestRankedSweepSkipsDisconnected(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)
	b := h.connect("b", 1200)
	require.NoError(t, h.m.FindMatch(a, nil))
	require.NoError(t, h.m.FindMatch(b, nil))

	h.m.Disconnect(b)

	assert.Zero(t, h.m.SweepRanked())
	assert.Equal(t, 1, h.m.QueueStats().Queues[ModeRanked])
}

func TestConnectEvictsGhostWithoutWalkover(t *testing.T) {
	h := newHarness(t)
	a1 := h.connect("a", 1200)
	b := h.connect("b", 1200)
	match := startMatch(h.m, a1, b, ModeRanked)

	a2 := h.connect("a", 1200)
	assert.False(t, a1.Alive())
	assert.Equal(t, "replaced by new connection", a1.reason)
	require.Len(t, a2.named(EventRejoinSuccess), 1)

	// The ghost's close arrives after the new connection registered.
	h.m.Disconnect(a1)

	assert.Empty(t, h.sched.pending())
	assert.Equal(t, StateActive, stateOf(h.m, match))
	assert.Empty(t, b.gameMessages(MsgOpponentDisconnected))
}

func TestMatchStats(t *testing.T) {
	h := newHarness(t)
	a := h.connect("a", 1200)
	b := h.connect("b", 1200)
	c := h.connect("c", 1200)
	d := h.connect("d", 1200)
	startMatch(h.m, a, b, ModeFriendly)
	startMatch(h.m, c, d, ModeRanked)
	h.m.Disconnect(c)

	stats := h.m.MatchStats()
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.AwaitingReturn)
	assert.Equal(t, 1, stats.PendingWalkovers)
	assert.Equal(t, int64(2), stats.Started)

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"awaitingReturn":1`)
}
