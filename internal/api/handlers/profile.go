package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/boardwar/backend/internal/game"
	"github.com/boardwar/backend/internal/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetPlayerProfile returns a player's rating, rank and record
func GetPlayerProfile(store profile.Store, timeout time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		p, err := store.FindByID(ctx, id)
		if errors.Is(err, profile.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		if err != nil {
			log.Warn("profile lookup failed", zap.String("player", id), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile store unavailable"})
			return
		}

		played := p.Wins + p.Losses
		winRate := 0.0
		if played > 0 {
			winRate = float64(p.Wins) / float64(played) * 100
		}

		c.JSON(http.StatusOK, gin.H{
			"id":           p.ID,
			"name":         p.Name,
			"rating":       p.Rating,
			"rank":         game.RankLabel(p.Rating),
			"wins":         p.Wins,
			"losses":       p.Losses,
			"games_played": played,
			"win_rate":     winRate,
		})
	}
}
