// Package profiles declares the server-side repository contract for user profiles.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

type Repository interface {
	// Create inserts the profile and fills in the database-assigned fields.
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)

	// GetByUserID returns the profile owned by userID or common.ErrorNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)

	// GetByUserIDForUpdate behaves like GetByUserID but takes a row lock, so
	// concurrent configuration writes serialize. Call inside a transaction.
	GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Profile, error)

	// Update persists display name, avatar key, and configuration changes.
	Update(ctx context.Context, profile *models.Profile) error
}
