package game

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Mode is the queue a player searches in and the rule set a match is played under.
type Mode string

const (
	ModeRanked   Mode = "ranked"
	ModeFriendly Mode = "friendly"
	ModeInvite   Mode = "invite"
	ModeMinigame Mode = "minigame"
)

// AllModes lists every queue the matchmaker keeps, ranked first.
var AllModes = []Mode{ModeRanked, ModeFriendly, ModeInvite, ModeMinigame}

// IsRanked reports whether matches in this mode move ratings.
func (m Mode) IsRanked() bool {
	return m == ModeRanked
}

// ParseMode normalizes a find_match payload. Clients send the mode as
// {"mode": "..."}, as a bare string, or as JSON-encoded text of either.
// Anything unrecognized resolves to ranked.
func ParseMode(raw json.RawMessage) Mode {
	return parseMode(raw, 0)
}

func parseMode(raw []byte, depth int) Mode {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || depth > 2 {
		return ModeRanked
	}

	switch raw[0] {
	case '{':
		var payload struct {
			Mode json.RawMessage `json:"mode"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Mode) == 0 {
			return ModeRanked
		}
		var s string
		if err := json.Unmarshal(payload.Mode, &s); err != nil {
			return ModeRanked
		}
		return normalizeMode(s)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ModeRanked
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, `"`) {
			return parseMode([]byte(s), depth+1)
		}
		return normalizeMode(s)
	}
	return ModeRanked
}

func normalizeMode(s string) Mode {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(s))); mode {
	case ModeRanked, ModeFriendly, ModeInvite, ModeMinigame:
		return mode
	}
	return ModeRanked
}
