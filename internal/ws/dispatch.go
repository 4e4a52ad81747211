package ws

import (
	"bytes"
	"encoding/json"

	"github.com/boardwar/backend/internal/game"
	"go.uber.org/zap"
)

// Inbound event names.
const (
	EventFindMatch          = "find_match"
	EventLeaveQueue         = "leave_queue"
	EventGameMove           = "game_move"
	EventTurnPass           = "turn_pass"
	EventCheckTurnIntegrity = "check_turn_integrity"
	EventProvideGameState   = "provide_game_state"
	EventRequestRematch     = "request_rematch"
	EventRespondRematch     = "respond_rematch"
	EventCancelRematch      = "cancel_rematch"
	EventGameOverReport     = "game_over_report"
	EventLeaveGame          = "leave_game"
)

func (h *Hub) dispatch(c *Client, msg WSMessage) {
	m := h.manager
	var err error

	switch msg.Type {
	case EventFindMatch:
		err = m.FindMatch(c, msg.Data)
	case EventLeaveQueue:
		m.LeaveQueue(c)
	case EventGameMove:
		err = m.ApplyMove(c, unwrap(msg.Data))
	case EventTurnPass:
		var pass game.TurnPass
		if err = decodeData(msg.Data, &pass); err == nil {
			err = m.PassTurn(c, pass)
		}
	case EventCheckTurnIntegrity:
		var check struct {
			BelievesPlayer1Turn bool `json:"believesPlayer1Turn"`
		}
		if err = decodeData(msg.Data, &check); err == nil {
			_, err = m.CheckTurnIntegrity(c, check.BelievesPlayer1Turn)
		}
	case EventProvideGameState:
		err = m.ProvideGameState(c, unwrap(msg.Data))
	case EventRequestRematch:
		m.RequestRematch(c)
	case EventRespondRematch:
		var answer struct {
			Accepted bool `json:"accepted"`
		}
		if err = decodeData(msg.Data, &answer); err == nil {
			m.RespondRematch(c, answer.Accepted)
		}
	case EventCancelRematch:
		m.CancelRematch(c)
	case EventGameOverReport:
		var report game.GameOverReport
		if err = decodeData(msg.Data, &report); err == nil {
			_, err = m.ReportGameOver(c, report)
		}
	case EventLeaveGame:
		m.LeaveGame(c)
	default:
		c.log.Debug("unknown event", zap.String("type", msg.Type))
		return
	}

	if err != nil {
		c.log.Debug("event rejected", zap.String("type", msg.Type), zap.Error(err))
	}
}

// unwrap turns a payload sent as JSON-encoded text back into JSON.
func unwrap(data json.RawMessage) json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return data
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return data
	}
	inner := bytes.TrimSpace([]byte(s))
	if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') && json.Valid(inner) {
		return inner
	}
	return data
}

func decodeData(data json.RawMessage, v interface{}) error {
	data = unwrap(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}
