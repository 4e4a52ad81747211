package game

import "encoding/json"

// DefaultPlayerName is used when the handshake carries no display name.
const DefaultPlayerName = "Guerreiro"

// PlayerIdentity is who sits behind a connection. Rating is a cached copy;
// the profile store holds the authoritative value.
type PlayerIdentity struct {
	ID     string
	Name   string
	Skins  json.RawMessage
	Rating int
}

// Participant is a player's snapshot inside a match.
type Participant struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Skins  json.RawMessage `json:"skins"`
	Rating int             `json:"elo"`
}

// PublicProfile is what a player is shown about the opponent.
type PublicProfile struct {
	Name  string          `json:"name"`
	Skins json.RawMessage `json:"skins"`
	Elo   int             `json:"elo"`
}

func participantFrom(id PlayerIdentity) Participant {
	return Participant{ID: id.ID, Name: id.Name, Skins: id.Skins, Rating: id.Rating}
}

func (p Participant) public() PublicProfile {
	skins := p.Skins
	if len(skins) == 0 {
		skins = json.RawMessage(`{}`)
	}
	return PublicProfile{Name: p.Name, Skins: skins, Elo: p.Rating}
}
