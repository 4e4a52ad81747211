package profile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/boardwar/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each profile as a hash under profile:<id>.
type RedisStore struct {
	rdb           *redis.Client
	defaultRating int
}

func NewRedisStore(rdb *redis.Client, defaultRating int) *RedisStore {
	return &RedisStore{rdb: rdb, defaultRating: defaultRating}
}

func profileKey(id string) string {
	return "profile:" + id
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	values, err := s.rdb.HGetAll(ctx, profileKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", id, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}
	return decodeProfile(id, values), nil
}

func (s *RedisStore) Upsert(ctx context.Context, id string, fields Fields) (*models.Profile, error) {
	key := profileKey(id)
	now := time.Now().Unix()

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// Defaults only land on a fresh hash
		pipe.HSetNX(ctx, key, "name", "")
		pipe.HSetNX(ctx, key, "rating", s.defaultRating)
		pipe.HSetNX(ctx, key, "wins", 0)
		pipe.HSetNX(ctx, key, "losses", 0)
		pipe.HSetNX(ctx, key, "created_at", now)

		values := map[string]interface{}{"updated_at": now}
		if fields.Name != nil {
			values["name"] = *fields.Name
		}
		if fields.Rating != nil {
			values["rating"] = *fields.Rating
		}
		if fields.Wins != nil {
			values["wins"] = *fields.Wins
		}
		if fields.Losses != nil {
			values["losses"] = *fields.Losses
		}
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id, err)
	}

	return s.FindByID(ctx, id)
}

func decodeProfile(id string, values map[string]string) *models.Profile {
	p := &models.Profile{ID: id, Name: values["name"]}
	p.Rating, _ = strconv.Atoi(values["rating"])
	p.Wins, _ = strconv.Atoi(values["wins"])
	p.Losses, _ = strconv.Atoi(values["losses"])
	if ts, err := strconv.ParseInt(values["created_at"], 10, 64); err == nil {
		p.CreatedAt = time.Unix(ts, 0)
	}
	if ts, err := strconv.ParseInt(values["updated_at"], 10, 64); err == nil {
		p.UpdatedAt = time.Unix(ts, 0)
	}
	return p
}
