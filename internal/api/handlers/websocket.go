package handlers

import (
	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleGameWebSocket handles real-time matchmaking and game traffic
func HandleGameWebSocket(hub *ws.Hub, cfg *config.Config, log *zap.Logger) gin.HandlerFunc {
	return ws.HandleWebSocket(hub, ws.Handshake{
		Auth:          ws.NewAuthenticator(cfg.JWTSecret),
		DefaultRating: cfg.DefaultRating,
		ClientVersion: cfg.ClientVersion,
		Log:           log.Named("handshake"),
	})
}
