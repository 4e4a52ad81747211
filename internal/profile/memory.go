package profile

import (
	"context"
	"sync"
	"time"

	"github.com/boardwar/backend/internal/models"
)

// MemoryStore keeps profiles in process memory. Used for local runs
// (PROFILE_STORE=memory) and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	profiles      map[string]models.Profile
	defaultRating int
}

func NewMemoryStore(defaultRating int) *MemoryStore {
	return &MemoryStore{
		profiles:      make(map[string]models.Profile),
		defaultRating: defaultRating,
	}
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, id string, fields Fields) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p, ok := s.profiles[id]
	if !ok {
		p = models.Profile{ID: id, Rating: s.defaultRating, CreatedAt: now}
	}
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.Rating != nil {
		p.Rating = *fields.Rating
	}
	if fields.Wins != nil {
		p.Wins = *fields.Wins
	}
	if fields.Losses != nil {
		p.Losses = *fields.Losses
	}
	p.UpdatedAt = now
	s.profiles[id] = p

	return &p, nil
}
