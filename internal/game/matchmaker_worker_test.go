package game

import (
	"context"
	"testing"
	"time"

	"github.com/boardwar/backend/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMatchmakerWorkerPairsRankedQueue(t *testing.T) {
	m := NewManager(profile.NewMemoryStore(1200), DefaultSettings())
	a := newTestConn("a", 1200)
	b := newTestConn("b", 1200)
	m.Connect(a)
	m.Connect(b)
	require.NoError(t, m.FindMatch(a, nil))
	require.NoError(t, m.FindMatch(b, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartMatchmakerWorker(ctx, m, 10*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(a.named(EventMatchFound)) == 1 && len(b.named(EventMatchFound)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
