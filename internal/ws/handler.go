package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/boardwar/backend/internal/game"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by middleware.WebSocketCORSCheck
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handshake turns connection query parameters into a player identity.
type Handshake struct {
	Auth          *Authenticator
	DefaultRating int
	ClientVersion string
	Log           *zap.Logger
}

// Identify reads userId, name, skins and version from the query. With auth
// enabled the identity must come from a token passed as ?token= or a bearer
// header, and userId is ignored.
func (hs Handshake) Identify(r *http.Request) (game.PlayerIdentity, error) {
	q := r.URL.Query()
	identity := game.PlayerIdentity{
		ID:     strings.TrimSpace(q.Get("userId")),
		Name:   strings.TrimSpace(q.Get("name")),
		Skins:  json.RawMessage(`{}`),
		Rating: hs.DefaultRating,
	}

	token := q.Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" && hs.Auth.Enabled() {
		return game.PlayerIdentity{}, fmt.Errorf("%w: token required", ErrInvalidToken)
	}
	if token != "" {
		claims, err := hs.Auth.Verify(token)
		if err != nil {
			return game.PlayerIdentity{}, err
		}
		identity.ID = claims.Subject
		if claims.Name != "" {
			identity.Name = claims.Name
		}
	}

	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.Name == "" {
		identity.Name = game.DefaultPlayerName
	}
	if skins := q.Get("skins"); skins != "" && json.Valid([]byte(skins)) {
		identity.Skins = json.RawMessage(skins)
	}
	if v := q.Get("version"); v != "" && v != hs.ClientVersion {
		hs.Log.Warn("client version mismatch",
			zap.String("player", identity.ID),
			zap.String("version", v),
			zap.String("expected", hs.ClientVersion))
	}
	return identity, nil
}

// HandleWebSocket upgrades the request and hands the client to the hub.
func HandleWebSocket(hub *Hub, hs Handshake) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := hs.Identify(c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(hub, conn, identity)
		if !hub.registerClient(client) {
			client.Close("server shutting down")
			return
		}
		client.log.Info("websocket connected", zap.String("name", identity.Name))
	}
}
