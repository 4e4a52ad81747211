package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrEmptyMove = errors.New("empty move")

// TurnPass is the payload of turn_pass.
type TurnPass struct {
	P1Time *float64 `json:"p1Time"`
	P2Time *float64 `json:"p2Time"`
}

// ApplyMove records a move and relays it verbatim to the opponent.
func (m *Manager) ApplyMove(c Conn, move json.RawMessage) error {
	id := c.Identity().ID
	if len(bytes.TrimSpace(move)) == 0 {
		return fmt.Errorf("move from %s: %w", id, ErrEmptyMove)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.findExistingMatchFor(id)
	if match == nil || !match.acceptsMoves() {
		return fmt.Errorf("move from %s: %w", id, ErrNotInMatch)
	}
	match.applyMove(move)
	m.sendTo(match.Opponent(id).ID, EventGameMessage, move)
	return nil
}

// PassTurn hands the turn over without a move and syncs clocks.
func (m *Manager) PassTurn(c Conn, pass TurnPass) error {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.findExistingMatchFor(id)
	if match == nil || !match.acceptsMoves() {
		return fmt.Errorf("turn pass from %s: %w", id, ErrNotInMatch)
	}
	match.updateClocks(moveMeta{P1Time: pass.P1Time, P2Time: pass.P2Time})
	match.IsPlayer1Turn = !match.IsPlayer1Turn

	m.sendTo(match.Opponent(id).ID, EventGameMessage, map[string]interface{}{
		"type":          MsgTurnPass,
		"p1Time":        match.P1Time,
		"p2Time":        match.P2Time,
		"isPlayer1Turn": match.IsPlayer1Turn,
	})
	return nil
}

// CheckTurnIntegrity compares the client's idea of whose turn it is with
// the server's. On disagreement both sides are told to resync in full.
func (m *Manager) CheckTurnIntegrity(c Conn, believesPlayer1Turn bool) (bool, error) {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.findExistingMatchFor(id)
	if match == nil {
		return false, fmt.Errorf("turn check from %s: %w", id, ErrNotInMatch)
	}
	if believesPlayer1Turn == match.IsPlayer1Turn {
		return true, nil
	}

	m.log.Info("turn desync",
		zap.String("room", match.RoomID),
		zap.String("player", id),
		zap.Bool("serverPlayer1Turn", match.IsPlayer1Turn))
	m.sendToRoom(match, EventGameMessage, notice(MsgForceFullSync))
	return false, nil
}

// gameStateMeta is what the server reads from a provided board state.
type gameStateMeta struct {
	P1Time        *float64 `json:"p1Time"`
	P2Time        *float64 `json:"p2Time"`
	IsPlayer1Turn *bool    `json:"isPlayer1Turn"`
}

// ProvideGameState forwards a full board state to the opponent, typically
// in answer to request_state_for_reconnection. Clock and turn fields in it
// become the server's values.
func (m *Manager) ProvideGameState(c Conn, state json.RawMessage) error {
	id := c.Identity().ID

	m.mu.Lock()
	defer m.mu.Unlock()

	match := m.findExistingMatchFor(id)
	if match == nil {
		return fmt.Errorf("game state from %s: %w", id, ErrNotInMatch)
	}

	var meta gameStateMeta
	if err := json.Unmarshal(state, &meta); err == nil {
		match.updateClocks(moveMeta{P1Time: meta.P1Time, P2Time: meta.P2Time})
		if meta.IsPlayer1Turn != nil {
			match.IsPlayer1Turn = *meta.IsPlayer1Turn
		}
	}

	m.sendTo(match.Opponent(id).ID, EventGameMessage, map[string]interface{}{
		"type":  MsgGameState,
		"state": state,
	})
	return nil
}
