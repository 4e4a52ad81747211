package api

import (
	"time"

	"github.com/boardwar/backend/internal/api/handlers"
	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/game"
	"github.com/boardwar/backend/internal/middleware"
	"github.com/boardwar/backend/internal/profile"
	"github.com/boardwar/backend/internal/ws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, manager *game.Manager, hub *ws.Hub, store profile.Store, cfg *config.Config, log *zap.Logger) {
	router.Use(middleware.CORSMiddleware(cfg, log))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
	}

	storeTimeout := time.Duration(cfg.StoreTimeoutMs) * time.Millisecond

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(cfg, manager))

		// Realtime session: matchmaking, gameplay relay, reconnection
		v1.GET("/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleGameWebSocket(hub, cfg, log))

		v1.GET("/queue/status", handlers.GetQueueStatus(manager))
		v1.GET("/matches/stats", handlers.GetMatchStats(manager))
		v1.GET("/profile/:id", handlers.GetPlayerProfile(store, storeTimeout, log.Named("api")))
	}
}
