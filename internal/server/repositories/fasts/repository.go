// Package fasts declares the server-side repository contract for fasting
// periods and implements it for PostgreSQL.
package fasts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

// Stats summarizes a user's fasting history for the list page.
type Stats struct {
	Total     int
	Completed int
	Active    int
}

// ArchivableFast is a completed fast joined with its owner's email,
// used by the archive command's dry-run sample.
type ArchivableFast struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	UserEmail string
}

type Repository interface {
	// Create inserts the fast and fills in the database-assigned fields.
	Create(ctx context.Context, fast *models.Fast) (*models.Fast, error)

	// GetByID returns the fast or common.ErrorNotFound. Ownership is not
	// checked here; callers compare UserID.
	GetByID(ctx context.Context, id string) (*models.Fast, error)

	// GetByIDForUpdate behaves like GetByID but takes a row lock so that
	// concurrent end requests serialize. Call inside a transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Fast, error)

	// GetActive returns the user's running fast or common.ErrorNotFound.
	GetActive(ctx context.Context, userID string) (*models.Fast, error)

	// Update persists start/end time, emotional status and comments.
	Update(ctx context.Context, fast *models.Fast) error

	// Delete removes the fast or returns common.ErrorNotFound.
	Delete(ctx context.Context, id string) error

	// List returns the user's fasts, most recently started first.
	List(ctx context.Context, userID string, limit, offset int) ([]*models.Fast, error)

	// ListCompleted returns up to limit completed fasts, most recently
	// started first.
	ListCompleted(ctx context.Context, userID string, limit int) ([]*models.Fast, error)

	// All returns every fast of the user, most recently started first.
	// Exports iterate over this.
	All(ctx context.Context, userID string) ([]*models.Fast, error)

	// Stats counts the user's total, completed, and active fasts.
	Stats(ctx context.Context, userID string) (*Stats, error)

	// Prev returns the fast started most recently before startTime,
	// or common.ErrorNotFound at the end of the history.
	Prev(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error)

	// Next returns the fast started soonest after startTime,
	// or common.ErrorNotFound at the end of the history.
	Next(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error)

	// CountArchivable counts completed, not yet archived fasts that ended
	// before cutoff.
	CountArchivable(ctx context.Context, cutoff time.Time) (int64, error)

	// ListArchivable returns up to limit archivable fasts with their owner
	// emails, oldest start first.
	ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*ArchivableFast, error)

	// ArchiveBatch stamps archived_at on up to limit archivable fasts,
	// oldest start first, and returns how many rows it touched.
	ArchiveBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}
