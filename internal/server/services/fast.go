package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/dbx"
	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/fasts"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/repomanager"
)

// RecentFastCount is how many completed fasts the dashboard shows.
const RecentFastCount = 5

// FastService implements the fasting lifecycle: starting, ending, editing,
// history, and archival. Mutations that can race with concurrent requests run
// under a row lock inside a single transaction.
type FastService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pageSize    int
}

func NewFastService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *FastService {
	return &FastService{
		db:          db,
		repomanager: m,
		pageSize:    cfg.PageSize,
	}
}

// Start begins a new fast. A user with a running fast gets
// common.ErrActiveFastExists; the check runs in the same transaction as the
// insert, and a partial unique index backstops it against concurrent starts.
func (s *FastService) Start(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error) {
	fast := &models.Fast{UserID: userID, StartTime: startTime}
	if err := fast.Validate(); err != nil {
		return nil, err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Fasts(tx)

		if _, err := repo.GetActive(ctx, userID); err == nil {
			return common.ErrActiveFastExists
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		_, err := repo.Create(ctx, fast)
		return err
	}); err != nil {
		return nil, err
	}

	return fast, nil
}

// End completes the fast. The row is locked for the read-verify-write
// sequence: a fast ended by a concurrent request yields common.ErrConflict,
// a deleted one common.ErrorNotFound.
func (s *FastService) End(ctx context.Context, userID, fastID string, endTime time.Time,
	status models.EmotionalStatus, comments string) (*models.Fast, error) {

	var ended *models.Fast

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Fasts(tx)

		fast, err := repo.GetByIDForUpdate(ctx, fastID)
		if err != nil {
			return err
		}
		if fast.UserID != userID {
			return common.ErrorNotFound
		}
		if !fast.IsActive() {
			return common.ErrConflict
		}

		fast.EndTime = &endTime
		fast.EmotionalStatus = status
		fast.Comments = comments
		if err := fast.Validate(); err != nil {
			return err
		}
		if err := repo.Update(ctx, fast); err != nil {
			return err
		}

		ended = fast
		return nil
	}); err != nil {
		return nil, err
	}

	return ended, nil
}

// Update edits an existing fast under a row lock. Clearing the end time
// reactivates the fast, which is refused while another fast is running.
func (s *FastService) Update(ctx context.Context, userID, fastID string, startTime time.Time,
	endTime *time.Time, status models.EmotionalStatus, comments string) (*models.Fast, error) {

	var updated *models.Fast

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Fasts(tx)

		fast, err := repo.GetByIDForUpdate(ctx, fastID)
		if err != nil {
			return err
		}
		if fast.UserID != userID {
			return common.ErrorNotFound
		}

		if endTime == nil {
			active, err := repo.GetActive(ctx, userID)
			if err == nil && active.ID != fastID {
				return common.ErrActiveFastExists
			}
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}

		fast.StartTime = startTime
		fast.EndTime = endTime
		fast.EmotionalStatus = status
		fast.Comments = comments
		if err := fast.Validate(); err != nil {
			return err
		}
		if err := repo.Update(ctx, fast); err != nil {
			return err
		}

		updated = fast
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes the fast and reports whether it was still running, so the
// caller can drop its session pointer.
func (s *FastService) Delete(ctx context.Context, userID, fastID string) (bool, error) {
	var wasActive bool

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Fasts(tx)

		fast, err := repo.GetByIDForUpdate(ctx, fastID)
		if err != nil {
			return err
		}
		if fast.UserID != userID {
			return common.ErrorNotFound
		}

		wasActive = fast.IsActive()
		return repo.Delete(ctx, fast.ID)
	}); err != nil {
		return false, err
	}

	return wasActive, nil
}

// GetOwned returns the fast if it belongs to userID; a missing or foreign
// fast is common.ErrorNotFound either way.
func (s *FastService) GetOwned(ctx context.Context, userID, fastID string) (*models.Fast, error) {
	fast, err := s.repomanager.Fasts(s.db).GetByID(ctx, fastID)
	if err != nil {
		return nil, err
	}
	if fast.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return fast, nil
}

// Active returns the user's running fast, or nil when there is none.
func (s *FastService) Active(ctx context.Context, userID string) (*models.Fast, error) {
	fast, err := s.repomanager.Fasts(s.db).GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fast, nil
}

// Recent returns the most recently started completed fasts, RecentFastCount
// at most.
func (s *FastService) Recent(ctx context.Context, userID string) ([]*models.Fast, error) {
	return s.repomanager.Fasts(s.db).ListCompleted(ctx, userID, RecentFastCount)
}

// ListPage is one page of fasting history together with aggregate counts.
type ListPage struct {
	Fasts      []*models.Fast
	Stats      *fasts.Stats
	Page       int
	TotalPages int
}

// List returns the page'th page of the user's history, most recently started
// first. Pages are 1-based; out-of-range values clamp.
func (s *FastService) List(ctx context.Context, userID string, page int) (*ListPage, error) {
	repo := s.repomanager.Fasts(s.db)

	stats, err := repo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalPages := (stats.Total + s.pageSize - 1) / s.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	list, err := repo.List(ctx, userID, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}

	return &ListPage{Fasts: list, Stats: stats, Page: page, TotalPages: totalPages}, nil
}

// Neighbors finds the fasts started immediately before and after the given
// one in the user's history. Missing neighbors come back nil.
func (s *FastService) Neighbors(ctx context.Context, userID string, fast *models.Fast) (*models.Fast, *models.Fast, error) {
	repo := s.repomanager.Fasts(s.db)

	prev, err := repo.Prev(ctx, userID, fast.StartTime)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, nil, err
	}

	next, err := repo.Next(ctx, userID, fast.StartTime)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, nil, err
	}

	return prev, next, nil
}

// Export returns the user's full history for the CSV and JSON downloads.
func (s *FastService) Export(ctx context.Context, userID string) ([]*models.Fast, error) {
	return s.repomanager.Fasts(s.db).All(ctx, userID)
}

// CountArchivable counts completed fasts that ended before cutoff and have
// not been archived yet.
func (s *FastService) CountArchivable(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repomanager.Fasts(s.db).CountArchivable(ctx, cutoff)
}

// SampleArchivable returns up to limit archivable fasts with owner emails,
// oldest first, for the archive command's dry run.
func (s *FastService) SampleArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*fasts.ArchivableFast, error) {
	return s.repomanager.Fasts(s.db).ListArchivable(ctx, cutoff, limit)
}

// Archive stamps archived_at on all archivable fasts in batches inside one
// transaction. After each batch, progress is called with the batch number and
// the running and total counts.
func (s *FastService) Archive(ctx context.Context, cutoff time.Time, batchSize int,
	progress func(batch int, processed, total int64)) (int64, error) {

	total, err := s.CountArchivable(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	var processed int64

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Fasts(tx)

		for batch := 1; processed < total; batch++ {
			n, err := repo.ArchiveBatch(ctx, cutoff, batchSize)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			processed += n
			if progress != nil {
				progress(batch, processed, total)
			}
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("archival failed: %w", err)
	}

	return processed, nil
}
