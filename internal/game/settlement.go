package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boardwar/backend/internal/events"
	"github.com/boardwar/backend/internal/models"
	"github.com/boardwar/backend/internal/profile"
	"go.uber.org/zap"
)

// GameOverReport is the payload of game_over_report, from the reporter's side.
type GameOverReport struct {
	Result   string  `json:"result"`
	Reason   string  `json:"reason"`
	MyScore  float64 `json:"myScore"`
	OppScore float64 `json:"oppScore"`
}

// settlement carries one match outcome from the locked decision to the
// unlocked store write and back.
type settlement struct {
	match       *Match
	roomID      string
	mode        Mode
	draw        bool
	walkover    bool
	winner      Participant
	loser       Participant
	reason      Reason
	winnerScore float64
	loserScore  float64
}

// ReportGameOver settles the reporter's current match.
func (m *Manager) ReportGameOver(c Conn, report GameOverReport) (bool, error) {
	id := c.Identity().ID
	outcome, ok := ParseOutcome(report.Result)
	if !ok {
		c.Send(EventMatchError, MatchError{Message: "Unknown game result"})
		return false, fmt.Errorf("game over from %s: %w: %q", id, ErrUnknownResult, report.Result)
	}

	m.mu.Lock()
	match := m.matchFor(id)
	m.mu.Unlock()
	if match == nil {
		return false, fmt.Errorf("game over from %s: %w", id, ErrNotInMatch)
	}

	reason := Reason(strings.ToLower(strings.TrimSpace(report.Reason)))
	return m.Settle(match.RoomID, outcome, reason, id, report.MyScore, report.OppScore)
}

// Settle ends a match exactly once. It reports false when the match is
// already settled or being settled.
func (m *Manager) Settle(roomID string, outcome Outcome, reason Reason, reporterID string, myScore, oppScore float64) (bool, error) {
	m.mu.Lock()
	match, ok := m.matches[roomID]
	if !ok || !match.Has(reporterID) {
		m.mu.Unlock()
		return false, fmt.Errorf("settle room %s for %s: %w", roomID, reporterID, ErrNotInMatch)
	}
	if match.State == StateSettlementInFlight || match.State == StateFinished {
		m.mu.Unlock()
		m.log.Info("duplicate settlement ignored",
			zap.String("room", roomID),
			zap.String("reporter", reporterID),
			zap.String("state", match.State.String()))
		return false, nil
	}

	var plan *settlement
	switch outcome {
	case OutcomeWin:
		plan = m.beginSettlement(match, reporterID, reason, myScore, oppScore)
	case OutcomeLoss:
		plan = m.beginSettlement(match, match.Opponent(reporterID).ID, reason, oppScore, myScore)
	default:
		plan = m.beginSettlement(match, "", reason, myScore, oppScore)
	}
	m.mu.Unlock()

	m.commitSettlement(plan)
	return true, nil
}

// LeaveGame handles a player walking away. An unfinished match is settled
// as a quit; a finished one is left, withdrawing any rematch handshake.
func (m *Manager) LeaveGame(c Conn) {
	id := c.Identity().ID

	m.mu.Lock()
	match := m.matchFor(id)
	if match == nil {
		m.mu.Unlock()
		return
	}
	match.left[id] = true

	switch match.State {
	case StateActive, StateAwaitingReturn:
		plan := m.beginSettlement(match, match.Opponent(id).ID, ReasonQuit, 0, 0)
		delete(m.playerToMatch, id)
		m.mu.Unlock()
		m.log.Info("player quit match", zap.String("player", id), zap.String("room", match.RoomID))
		m.commitSettlement(plan)
		return
	case StateFinished:
		m.withdrawFromRematch(match, id)
		delete(m.playerToMatch, id)
	}
	m.mu.Unlock()
}

// beginSettlement claims the match for settlement. winnerID "" is a draw.
// Caller holds mu.
func (m *Manager) beginSettlement(match *Match, winnerID string, reason Reason, winnerScore, loserScore float64) *settlement {
	match.State = StateSettlementInFlight
	plan := &settlement{
		match:       match,
		roomID:      match.RoomID,
		mode:        match.Mode,
		reason:      reason,
		winnerScore: winnerScore,
		loserScore:  loserScore,
	}
	if winnerID == "" {
		plan.draw = true
		plan.winner, plan.loser = match.P1, match.P2
	} else {
		plan.winner = match.Participant(winnerID)
		plan.loser = match.Opponent(winnerID)
	}
	return plan
}

// commitSettlement writes ratings (ranked, decisive matches only), then
// finishes the match, tells both players and schedules cleanup.
func (m *Manager) commitSettlement(plan *settlement) {
	var updates map[string]RatingUpdate
	if plan.mode.IsRanked() && !plan.draw {
		updates = m.applyRatings(plan)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	match := plan.match
	match.State = StateFinished
	match.EloApplied = updates != nil
	match.absentID = ""
	match.rematchRequester = ""
	m.settlements++

	if rt, ok := m.reconnectTimers[plan.roomID]; ok {
		rt.timer.Stop()
		delete(m.reconnectTimers, plan.roomID)
	}

	winnerID := plan.winner.ID
	if plan.draw {
		winnerID = ""
	}
	for _, p := range []Participant{plan.winner, plan.loser} {
		m.sendTo(p.ID, EventGameMessage, GameOver{
			Type:     MsgGameOver,
			Reason:   plan.reason,
			Result:   plan.resultFor(p.ID),
			WinnerID: winnerID,
		})
		if u, ok := updates[p.ID]; ok {
			m.sendTo(p.ID, EventEloUpdate, u)
		}
	}

	m.scheduleCleanup(plan.roomID)

	m.log.Info("match settled",
		zap.String("room", plan.roomID),
		zap.String("reason", string(plan.reason)),
		zap.String("winner", winnerID),
		zap.Bool("draw", plan.draw),
		zap.Bool("eloApplied", match.EloApplied))

	m.publish(events.MatchSettled, map[string]interface{}{
		"roomId":     plan.roomID,
		"mode":       plan.mode,
		"reason":     plan.reason,
		"winnerId":   winnerID,
		"draw":       plan.draw,
		"eloApplied": match.EloApplied,
	})
}

func (s *settlement) resultFor(playerID string) string {
	switch {
	case s.draw:
		return "draw"
	case playerID != s.winner.ID:
		return "loss"
	case s.walkover:
		return "walkover"
	}
	return "win"
}

// applyRatings moves both ratings once and bumps win/loss counters. Any
// store failure skips rating for the match and returns nil.
func (m *Manager) applyRatings(plan *settlement) map[string]RatingUpdate {
	ctx, cancel := context.WithTimeout(context.Background(), m.settings.StoreTimeout)
	defer cancel()

	log := m.log.With(zap.String("room", plan.roomID))

	winner, err := m.loadProfile(ctx, plan.winner)
	if err != nil {
		log.Warn("rating skipped: winner profile unavailable", zap.String("player", plan.winner.ID), zap.Error(err))
		return nil
	}
	loser, err := m.loadProfile(ctx, plan.loser)
	if err != nil {
		log.Warn("rating skipped: loser profile unavailable", zap.String("player", plan.loser.ID), zap.Error(err))
		return nil
	}

	rules := m.settings.Rating
	winnerRating := max(0, winner.Rating+rules.WinnerDelta(winner.Rating, loser.Rating, plan.reason))
	loserRating := max(0, loser.Rating+rules.LoserDelta(loser.Rating, winner.Rating, plan.reason, plan.loserScore, plan.winnerScore))

	if _, err := m.store.Upsert(ctx, winner.ID, profile.Fields{
		Name:   profile.String(plan.winner.Name),
		Rating: profile.Int(winnerRating),
		Wins:   profile.Int(winner.Wins + 1),
	}); err != nil {
		log.Warn("rating skipped: winner update failed", zap.String("player", winner.ID), zap.Error(err))
		return nil
	}
	if _, err := m.store.Upsert(ctx, loser.ID, profile.Fields{
		Name:   profile.String(plan.loser.Name),
		Rating: profile.Int(loserRating),
		Losses: profile.Int(loser.Losses + 1),
	}); err != nil {
		log.Error("loser update failed after winner was saved", zap.String("player", loser.ID), zap.Error(err))
		return nil
	}

	return map[string]RatingUpdate{
		winner.ID: {NewRating: winnerRating, Delta: winnerRating - winner.Rating, RankLabel: RankLabel(winnerRating)},
		loser.ID:  {NewRating: loserRating, Delta: loserRating - loser.Rating, RankLabel: RankLabel(loserRating)},
	}
}

func (m *Manager) loadProfile(ctx context.Context, p Participant) (*models.Profile, error) {
	stored, err := m.store.FindByID(ctx, p.ID)
	if errors.Is(err, profile.ErrNotFound) {
		return &models.Profile{ID: p.ID, Name: p.Name, Rating: m.settings.DefaultRating}, nil
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// scheduleCleanup drops the match after the rematch window. Caller holds mu.
func (m *Manager) scheduleCleanup(roomID string) {
	if old, ok := m.cleanupTimers[roomID]; ok {
		old.timer.Stop()
	}
	rt := &roomTimer{}
	rt.timer = m.sched.AfterFunc(m.settings.CleanupDelay, func() { m.onCleanupExpired(roomID, rt) })
	m.cleanupTimers[roomID] = rt
}

func (m *Manager) cancelCleanup(roomID string) {
	if rt, ok := m.cleanupTimers[roomID]; ok {
		rt.timer.Stop()
		delete(m.cleanupTimers, roomID)
	}
}

func (m *Manager) onCleanupExpired(roomID string, rt *roomTimer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.cleanupTimers[roomID]; !ok || cur != rt {
		return
	}
	delete(m.cleanupTimers, roomID)

	match, ok := m.matches[roomID]
	if !ok || !match.IsFinished() {
		return
	}
	m.removeMatch(match)
	m.log.Debug("match cleaned up", zap.String("room", roomID))
}

func (m *Manager) removeMatch(match *Match) {
	delete(m.matches, match.RoomID)
	for _, id := range []string{match.P1.ID, match.P2.ID} {
		if m.playerToMatch[id] == match.RoomID {
			delete(m.playerToMatch, id)
		}
	}
}
