package fasts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/dbx"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

const fastCols = "id, user_id, start_time, end_time, emotional_status, comments, archived_at, created_at, updated_at"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFast(row rowScanner) (*models.Fast, error) {
	var (
		fast       models.Fast
		endTime    sql.NullTime
		status     sql.NullString
		archivedAt sql.NullTime
	)

	err := row.Scan(&fast.ID, &fast.UserID, &fast.StartTime, &endTime, &status,
		&fast.Comments, &archivedAt, &fast.CreatedAt, &fast.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		fast.EndTime = &endTime.Time
	}
	if status.Valid {
		fast.EmotionalStatus = models.EmotionalStatus(status.String)
	}
	if archivedAt.Valid {
		fast.ArchivedAt = &archivedAt.Time
	}

	return &fast, nil
}

// nullStatus maps the empty status to SQL NULL so the column stays clean
// for active fasts.
func nullStatus(s models.EmotionalStatus) any {
	if s == "" {
		return nil
	}
	return string(s)
}

func (r *PostgresRepository) Create(ctx context.Context, fast *models.Fast) (*models.Fast, error) {

	query := `INSERT INTO fasts (user_id, start_time, end_time, emotional_status, comments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		fast.UserID, fast.StartTime, fast.EndTime, nullStatus(fast.EmotionalStatus), fast.Comments)

	err := row.Scan(&fast.ID, &fast.CreatedAt, &fast.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrActiveFastExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return fast, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Fast, error) {
	return r.getByID(ctx, id, false)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Fast, error) {
	return r.getByID(ctx, id, true)
}

func (r *PostgresRepository) getByID(ctx context.Context, id string, forUpdate bool) (*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	fast, err := scanFast(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return fast, nil
}

func (r *PostgresRepository) GetActive(ctx context.Context, userID string) (*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE user_id = $1 AND end_time IS NULL`

	fast, err := scanFast(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return fast, nil
}

func (r *PostgresRepository) Update(ctx context.Context, fast *models.Fast) error {

	query := `UPDATE fasts SET start_time = $1, end_time = $2, emotional_status = $3, comments = $4, updated_at = now()
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		fast.StartTime, fast.EndTime, nullStatus(fast.EmotionalStatus), fast.Comments, fast.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {

	query := `DELETE FROM fasts WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, limit, offset int) ([]*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE user_id = $1
		ORDER BY start_time DESC LIMIT $2 OFFSET $3`

	return r.queryFasts(ctx, query, userID, limit, offset)
}

func (r *PostgresRepository) ListCompleted(ctx context.Context, userID string, limit int) ([]*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE user_id = $1 AND end_time IS NOT NULL
		ORDER BY start_time DESC LIMIT $2`

	return r.queryFasts(ctx, query, userID, limit)
}

func (r *PostgresRepository) All(ctx context.Context, userID string) ([]*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE user_id = $1 ORDER BY start_time DESC`

	return r.queryFasts(ctx, query, userID)
}

func (r *PostgresRepository) queryFasts(ctx context.Context, query string, args ...any) ([]*models.Fast, error) {

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Fast
	for rows.Next() {
		fast, err := scanFast(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, fast)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, userID string) (*Stats, error) {

	query := `SELECT count(*),
		count(*) FILTER (WHERE end_time IS NOT NULL),
		count(*) FILTER (WHERE end_time IS NULL)
		FROM fasts WHERE user_id = $1`

	stats := &Stats{}

	row := r.db.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&stats.Total, &stats.Completed, &stats.Active); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return stats, nil
}

func (r *PostgresRepository) Prev(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE user_id = $1 AND start_time < $2
		ORDER BY start_time DESC LIMIT 1`

	return r.queryNeighbor(ctx, query, userID, startTime)
}

func (r *PostgresRepository) Next(ctx context.Context, userID string, startTime time.Time) (*models.Fast, error) {

	query := `SELECT ` + fastCols + ` FROM fasts WHERE user_id = $1 AND start_time > $2
		ORDER BY start_time ASC LIMIT 1`

	return r.queryNeighbor(ctx, query, userID, startTime)
}

func (r *PostgresRepository) queryNeighbor(ctx context.Context, query, userID string, startTime time.Time) (*models.Fast, error) {

	fast, err := scanFast(r.db.QueryRowContext(ctx, query, userID, startTime))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return fast, nil
}

func (r *PostgresRepository) CountArchivable(ctx context.Context, cutoff time.Time) (int64, error) {

	query := `SELECT count(*) FROM fasts
		WHERE end_time IS NOT NULL AND end_time < $1 AND archived_at IS NULL`

	var count int64

	row := r.db.QueryRowContext(ctx, query, cutoff)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) ListArchivable(ctx context.Context, cutoff time.Time, limit int) ([]*ArchivableFast, error) {

	query := `SELECT f.id, f.start_time, f.end_time, u.email FROM fasts f
		JOIN users u ON u.id = f.user_id
		WHERE f.end_time IS NOT NULL AND f.end_time < $1 AND f.archived_at IS NULL
		ORDER BY f.start_time LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*ArchivableFast
	for rows.Next() {
		item := &ArchivableFast{}
		if err := rows.Scan(&item.ID, &item.StartTime, &item.EndTime, &item.UserEmail); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ArchiveBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {

	query := `UPDATE fasts SET archived_at = now(), updated_at = now()
		WHERE id IN (
			SELECT id FROM fasts
			WHERE end_time IS NOT NULL AND end_time < $1 AND archived_at IS NULL
			ORDER BY start_time LIMIT $2
		)`

	result, err := r.db.ExecContext(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return affected, nil
}
