package game

import (
	"encoding/json"
	"time"
)

// State is the lifecycle of a match.
type State int

const (
	// StateActive: both players present, moves flowing.
	StateActive State = iota
	// StateAwaitingReturn: one player is gone and a walkover timer runs.
	StateAwaitingReturn
	// StateSettlementInFlight: the outcome is being written; further reports are ignored.
	StateSettlementInFlight
	// StateFinished: settled. Kept until cleanup or a rematch resets it.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAwaitingReturn:
		return "awaiting_return"
	case StateSettlementInFlight:
		return "settlement_in_flight"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Match is one room between two players.
type Match struct {
	RoomID        string
	P1            Participant
	P2            Participant
	Mode          Mode
	Moves         []json.RawMessage
	P1Time        float64
	P2Time        float64
	IsPlayer1Turn bool
	State         State
	EloApplied    bool
	CreatedAt     time.Time

	absentID         string
	rematchRequester string
	left             map[string]bool
}

func newMatch(roomID string, p1, p2 Participant, mode Mode, clockStart float64, now time.Time) *Match {
	return &Match{
		RoomID:        roomID,
		P1:            p1,
		P2:            p2,
		Mode:          mode,
		Moves:         []json.RawMessage{},
		P1Time:        clockStart,
		P2Time:        clockStart,
		IsPlayer1Turn: true,
		State:         StateActive,
		CreatedAt:     now,
		left:          make(map[string]bool),
	}
}

func (m *Match) IsFinished() bool {
	return m.State == StateFinished
}

// acceptsMoves is true while the game is still being played.
func (m *Match) acceptsMoves() bool {
	return m.State == StateActive || m.State == StateAwaitingReturn
}

func (m *Match) Has(playerID string) bool {
	return m.P1.ID == playerID || m.P2.ID == playerID
}

func (m *Match) IsPlayer1(playerID string) bool {
	return m.P1.ID == playerID
}

func (m *Match) Participant(playerID string) Participant {
	if m.IsPlayer1(playerID) {
		return m.P1
	}
	return m.P2
}

func (m *Match) Opponent(playerID string) Participant {
	if m.IsPlayer1(playerID) {
		return m.P2
	}
	return m.P1
}

// moveMeta is the part of a move the server reads; the rest is opaque.
type moveMeta struct {
	TurnEnded bool     `json:"turnEnded"`
	P1Time    *float64 `json:"p1Time"`
	P2Time    *float64 `json:"p2Time"`
}

func (m *Match) updateClocks(meta moveMeta) {
	if meta.P1Time != nil {
		m.P1Time = *meta.P1Time
	}
	if meta.P2Time != nil {
		m.P2Time = *meta.P2Time
	}
}

// applyMove appends the move to the log and updates clocks and turn from
// its metadata. Unreadable metadata leaves clocks and turn as they were.
func (m *Match) applyMove(move json.RawMessage) {
	m.Moves = append(m.Moves, move)

	var meta moveMeta
	if err := json.Unmarshal(move, &meta); err != nil {
		return
	}
	m.updateClocks(meta)
	if meta.TurnEnded {
		m.IsPlayer1Turn = !m.IsPlayer1Turn
	}
}

func (m *Match) resetForRematch(clockStart float64) {
	m.Moves = []json.RawMessage{}
	m.P1Time = clockStart
	m.P2Time = clockStart
	m.IsPlayer1Turn = true
	m.State = StateActive
	m.EloApplied = false
	m.absentID = ""
	m.rematchRequester = ""
}

func (m *Match) history() []json.RawMessage {
	out := make([]json.RawMessage, len(m.Moves))
	copy(out, m.Moves)
	return out
}
