package game

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartMatchmakerWorker sweeps the ranked queue every interval until ctx ends.
func StartMatchmakerWorker(ctx context.Context, m *Manager, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log = log.Named("matchmaker")
	log.Info("matchmaker worker started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("matchmaker worker stopped")
			return
		case <-ticker.C:
			if n := m.SweepRanked(); n > 0 {
				log.Info("ranked sweep paired players", zap.Int("matches", n))
			}
		}
	}
}
