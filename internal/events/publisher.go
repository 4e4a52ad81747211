// Package events publishes match lifecycle events for consumers outside the
// session core (leaderboards, notifications).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	MatchStarted = "match_started"
	MatchSettled = "match_settled"
)

// Publisher delivers a named event with a JSON-serializable payload.
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
}

// Envelope is the wire shape written to the channel.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	TS   int64           `json:"ts"`
}

// RedisPublisher publishes envelopes on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, channel string, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel, log: log.Named("events")}
}

func (p *RedisPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	msg, err := json.Marshal(Envelope{Type: event, Data: data, TS: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	if err := p.rdb.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	p.log.Debug("event published", zap.String("event", event), zap.String("channel", p.channel))
	return nil
}

// Nop discards every event. Used when Redis is not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
