package handlers

import (
	"net/http"

	"github.com/boardwar/backend/internal/game"
	"github.com/gin-gonic/gin"
)

// GetQueueStatus returns the number of players waiting per mode
func GetQueueStatus(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := m.QueueStats()
		c.JSON(http.StatusOK, gin.H{
			"queue_by_mode": stats.Queues,
			"connections":   stats.Connections,
		})
	}
}

// GetMatchStats returns match counts by lifecycle state
func GetMatchStats(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, m.MatchStats())
	}
}
