package handlers

import (
	"net/http"
	"time"

	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/game"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports liveness plus the profile backend and load of the
// session core.
func HealthCheck(cfg *config.Config, m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		queues := m.QueueStats()
		matches := m.MatchStats()

		waiting := 0
		for _, n := range queues.Queues {
			waiting += n
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"service":        "boardwar-api",
			"version":        version,
			"uptime":         time.Since(startTime).String(),
			"profile_store":  cfg.ProfileStore,
			"connections":    queues.Connections,
			"waiting":        waiting,
			"active_matches": matches.Active + matches.AwaitingReturn + matches.Settling,
		})
	}
}
