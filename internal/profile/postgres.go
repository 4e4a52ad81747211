package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boardwar/backend/internal/models"
	"github.com/jmoiron/sqlx"
)

// PostgresStore persists profiles in the profiles table (see migrations/).
type PostgresStore struct {
	db            *sqlx.DB
	defaultRating int
}

func NewPostgresStore(db *sqlx.DB, defaultRating int) *PostgresStore {
	return &PostgresStore{db: db, defaultRating: defaultRating}
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, `SELECT id, name, rating, wins, losses, created_at, updated_at FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, id string, fields Fields) (*models.Profile, error) {
	var p models.Profile
	err := s.db.GetContext(ctx, &p, `
		INSERT INTO profiles (id, name, rating, wins, losses, created_at, updated_at)
		VALUES ($1, COALESCE($2::text, ''), COALESCE($3::int, $6::int), COALESCE($4::int, 0), COALESCE($5::int, 0), NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = COALESCE($2::text, profiles.name),
			rating = COALESCE($3::int, profiles.rating),
			wins = COALESCE($4::int, profiles.wins),
			losses = COALESCE($5::int, profiles.losses),
			updated_at = NOW()
		RETURNING id, name, rating, wins, losses, created_at, updated_at
	`, id, fields.Name, fields.Rating, fields.Wins, fields.Losses, s.defaultRating)
	if err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", id, err)
	}
	return &p, nil
}
