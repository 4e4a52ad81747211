package game

import (
	"fmt"

	"go.uber.org/zap"
)

// rejoin puts a returning player back into their match. Caller holds mu.
func (m *Manager) rejoin(match *Match, c Conn) {
	id := c.Identity().ID
	peer := match.Opponent(id)

	m.log.Info("player rejoined",
		zap.String("player", id),
		zap.String("room", match.RoomID),
		zap.String("state", match.State.String()))

	c.Send(EventRejoinSuccess, RejoinSuccess{
		IsPlayer1: match.IsPlayer1(id),
		Opponent:  peer.public(),
		History:   match.history(),
		Mode:      match.Mode,
		RoomID:    match.RoomID,
	})

	// Settlement already owns the match; game_over follows.
	if match.State == StateSettlementInFlight {
		return
	}

	if match.State == StateAwaitingReturn && match.absentID == id {
		if rt, ok := m.reconnectTimers[match.RoomID]; ok {
			rt.timer.Stop()
			delete(m.reconnectTimers, match.RoomID)
		}
		match.State = StateActive
		match.absentID = ""
	}

	m.sendToRoom(match, EventGameMessage, notice(MsgForceFullSync))

	if _, online := m.registry.Lookup(peer.ID); online {
		m.sendTo(peer.ID, EventStatus, StatusMessage{Text: fmt.Sprintf("%s is back in the game!", match.Participant(id).Name)})
		m.sendTo(peer.ID, EventGameMessage, notice(MsgOpponentReconnected))
		m.sendTo(peer.ID, EventGameMessage, notice(MsgRequestStateForReconnection))
		return
	}

	// The peer left while this player was away.
	if match.State == StateActive {
		m.beginAwaitingReturn(match, peer.ID)
	}
}

// beginAwaitingReturn starts the walkover countdown for absentID. A room
// has at most one countdown. Caller holds mu.
func (m *Manager) beginAwaitingReturn(match *Match, absentID string) {
	if _, running := m.reconnectTimers[match.RoomID]; running {
		return
	}

	grace := m.settings.GraceFor(match.Mode)
	match.State = StateAwaitingReturn
	match.absentID = absentID

	peer := match.Opponent(absentID)
	m.sendTo(peer.ID, EventStatus, StatusMessage{Text: "Opponent disconnected. Waiting for return..."})
	m.sendTo(peer.ID, EventGameMessage, map[string]interface{}{
		"type":         MsgOpponentDisconnected,
		"graceSeconds": int(grace.Seconds()),
	})

	rt := &roomTimer{absentID: absentID}
	roomID := match.RoomID
	rt.timer = m.sched.AfterFunc(grace, func() { m.onReconnectExpired(roomID, rt) })
	m.reconnectTimers[roomID] = rt

	m.log.Info("awaiting return",
		zap.String("room", roomID),
		zap.String("absent", absentID),
		zap.Duration("grace", grace))
}

// onReconnectExpired awards a walkover if, on waking, nothing has changed:
// same timer, same absent player, still absent, match unsettled.
func (m *Manager) onReconnectExpired(roomID string, rt *roomTimer) {
	m.mu.Lock()

	if cur, ok := m.reconnectTimers[roomID]; !ok || cur != rt {
		m.mu.Unlock()
		return
	}
	delete(m.reconnectTimers, roomID)

	match, ok := m.matches[roomID]
	if !ok || match.State != StateAwaitingReturn || match.absentID != rt.absentID {
		m.mu.Unlock()
		return
	}
	if _, back := m.registry.Lookup(rt.absentID); back {
		m.mu.Unlock()
		return
	}

	winner := match.Opponent(rt.absentID)
	plan := m.beginSettlement(match, winner.ID, ReasonOpponentDisconnected, 0, 0)
	plan.walkover = true
	m.walkovers++
	m.mu.Unlock()

	m.log.Info("walkover", zap.String("room", roomID), zap.String("absent", rt.absentID), zap.String("winner", winner.ID))
	m.commitSettlement(plan)
}
