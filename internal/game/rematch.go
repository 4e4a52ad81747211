package game

import "go.uber.org/zap"

func rematchFailed(reason string) map[string]interface{} {
	return map[string]interface{}{"type": MsgRematchFailed, "reason": reason}
}

// opponentGone reports whether the opponent can no longer take part in a
// rematch of this room. Caller holds mu.
func (m *Manager) opponentGone(match *Match, opponentID string) bool {
	return match.left[opponentID] || m.playerToMatch[opponentID] != match.RoomID
}

// RequestRematch asks the opponent of a finished match to play again. If the
// opponent already asked, the rematch starts.
func (m *Manager) RequestRematch(c Conn) {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.matchFor(id)
	if match == nil || !match.IsFinished() {
		c.Send(EventGameMessage, rematchFailed("no_finished_match"))
		return
	}
	opp := match.Opponent(id)
	if m.opponentGone(match, opp.ID) {
		c.Send(EventGameMessage, rematchFailed("opponent_left"))
		return
	}
	if _, online := m.registry.Lookup(opp.ID); !online {
		c.Send(EventGameMessage, rematchFailed("opponent_offline"))
		return
	}

	if match.rematchRequester == opp.ID {
		m.startRematch(match)
		return
	}
	match.rematchRequester = id
	m.sendTo(opp.ID, EventGameMessage, map[string]interface{}{
		"type": MsgRematchRequested,
		"from": match.Participant(id).Name,
	})
	m.log.Info("rematch requested", zap.String("room", match.RoomID), zap.String("player", id))
}

// RespondRematch answers the opponent's pending request.
func (m *Manager) RespondRematch(c Conn, accepted bool) {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.matchFor(id)
	if match == nil || !match.IsFinished() {
		c.Send(EventGameMessage, rematchFailed("no_finished_match"))
		return
	}
	opp := match.Opponent(id)
	if match.rematchRequester != opp.ID {
		c.Send(EventGameMessage, rematchFailed("no_pending_request"))
		return
	}

	if !accepted {
		match.rematchRequester = ""
		m.sendTo(opp.ID, EventGameMessage, rematchFailed("declined"))
		return
	}
	if m.opponentGone(match, opp.ID) {
		match.rematchRequester = ""
		c.Send(EventGameMessage, rematchFailed("opponent_left"))
		return
	}
	m.startRematch(match)
}

// CancelRematch withdraws the caller's own pending request.
func (m *Manager) CancelRematch(c Conn) {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.matchFor(id)
	if match == nil || match.rematchRequester != id {
		return
	}
	match.rematchRequester = ""
	m.sendTo(match.Opponent(id).ID, EventGameMessage, rematchFailed("cancelled"))
}

// startRematch resets the room in place for a new game. Caller holds mu.
func (m *Manager) startRematch(match *Match) {
	m.cancelCleanup(match.RoomID)
	match.resetForRematch(m.settings.ClockStart)
	m.rematches++

	for _, p := range []Participant{match.P1, match.P2} {
		m.sendTo(p.ID, EventGameMessage, map[string]interface{}{
			"type":      MsgRematchStart,
			"roomId":    match.RoomID,
			"isPlayer1": match.IsPlayer1(p.ID),
			"mode":      match.Mode,
		})
	}
	m.log.Info("rematch started", zap.String("room", match.RoomID))
}

// withdrawFromRematch clears a pending handshake involving playerID and
// tells the other side. Caller holds mu.
func (m *Manager) withdrawFromRematch(match *Match, playerID string) {
	if match.rematchRequester == "" {
		return
	}
	reason := "opponent_left"
	if match.rematchRequester == playerID {
		reason = "cancelled"
	}
	match.rematchRequester = ""
	m.sendTo(match.Opponent(playerID).ID, EventGameMessage, rematchFailed(reason))
}

// leaveFinishedMatch detaches the player from a settled match they are
// moving on from. Caller holds mu.
func (m *Manager) leaveFinishedMatch(playerID string) {
	match := m.matchFor(playerID)
	if match == nil || !match.IsFinished() {
		return
	}
	m.withdrawFromRematch(match, playerID)
	match.left[playerID] = true
	delete(m.playerToMatch, playerID)
}
