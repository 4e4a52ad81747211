package game

import "encoding/json"

// Outbound event names.
const (
	EventMatchFound    = "match_found"
	EventRejoinSuccess = "rejoin_success"
	EventStatus        = "status"
	EventGameMessage   = "game_message"
	EventEloUpdate     = "elo_update"
	EventMatchError    = "match_error"
)

// game_message subtypes generated by the server. Relayed moves keep
// whatever shape the client sent.
const (
	MsgOpponentDisconnected        = "opponent_disconnected"
	MsgOpponentReconnected         = "opponent_reconnected"
	MsgForceFullSync               = "force_full_sync_request"
	MsgRequestStateForReconnection = "request_state_for_reconnection"
	MsgRematchRequested            = "rematch_requested"
	MsgRematchStart                = "rematch_start"
	MsgRematchFailed               = "rematch_failed"
	MsgGameOver                    = "game_over"
	MsgTurnPass                    = "turn_pass"
	MsgGameState                   = "game_state"
)

type MatchFound struct {
	IsPlayer1 bool          `json:"isPlayer1"`
	Opponent  PublicProfile `json:"opponent"`
	Mode      Mode          `json:"mode"`
}

type RejoinSuccess struct {
	IsPlayer1 bool              `json:"isPlayer1"`
	Opponent  PublicProfile     `json:"opponent"`
	History   []json.RawMessage `json:"history"`
	Mode      Mode              `json:"mode"`
	RoomID    string            `json:"roomId"`
}

type StatusMessage struct {
	Text string `json:"text"`
}

type MatchError struct {
	Message string `json:"message"`
}

type GameOver struct {
	Type     string `json:"type"`
	Reason   Reason `json:"reason"`
	Result   string `json:"result"`
	WinnerID string `json:"winnerId,omitempty"`
}

// RatingUpdate is sent as elo_update to each rated participant.
type RatingUpdate struct {
	NewRating int    `json:"newRating"`
	Delta     int    `json:"delta"`
	RankLabel string `json:"rankLabel"`
}

func notice(kind string) map[string]interface{} {
	return map[string]interface{}{"type": kind}
}
