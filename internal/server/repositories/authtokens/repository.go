// Package authtokens declares the bearer token store used by the token
// service, and its PostgreSQL implementation.
package authtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pcpboard/internal/server/models"
)

// Repository persists opaque bearer tokens. There is no cache in front of it.
type Repository interface {
	// Create stores token for userID, valid until expiresAt.
	Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// Find returns the token row or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.AuthToken, error)

	// Delete removes one token. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteByUser removes every token owned by userID.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes tokens whose expiry is at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
