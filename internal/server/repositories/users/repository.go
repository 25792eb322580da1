// Package users declares the server-side repository contract for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts the user and fills in the database-assigned fields.
	// A duplicate email yields common.ErrEmailTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user with the given email or common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns the user with the given id or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// Update persists name and timezone changes.
	Update(ctx context.Context, user *models.User) error
}
