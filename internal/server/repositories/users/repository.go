// Package users declares the user store and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/pcpboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
