// Package profile holds the player profile stores used by the session core.
// The core only needs rating and win/loss counters, loaded and saved by id.
package profile

import (
	"context"
	"errors"

	"github.com/boardwar/backend/internal/models"
)

// ErrNotFound is returned by FindByID when no profile exists for the id.
var ErrNotFound = errors.New("profile not found")

// Fields is a partial profile update. Nil fields are left untouched; a
// missing profile is created with defaults for the nil fields.
type Fields struct {
	Name   *string
	Rating *int
	Wins   *int
	Losses *int
}

// Store loads and saves profiles by id.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, id string, fields Fields) (*models.Profile, error)
}

// Int returns a pointer to v, for building Fields.
func Int(v int) *int { return &v }

// String returns a pointer to v, for building Fields.
func String(v string) *string { return &v }
