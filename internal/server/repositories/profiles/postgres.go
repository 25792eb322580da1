package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fastkeeper/internal/common"
	"github.com/dmitrijs2005/fastkeeper/internal/dbx"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {

	query := `INSERT INTO profiles (user_id, display_name, avatar_key, configuration)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		profile.UserID, profile.DisplayName, profile.AvatarKey, profile.Configuration)

	err := row.Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return profile, nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return r.getByUserID(ctx, userID, false)
}

func (r *PostgresRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	return r.getByUserID(ctx, userID, true)
}

func (r *PostgresRepository) getByUserID(ctx context.Context, userID string, forUpdate bool) (*models.Profile, error) {

	query := `SELECT id, user_id, display_name, avatar_key, configuration, created_at, updated_at
		FROM profiles WHERE user_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	profile := &models.Profile{}

	row := r.db.QueryRowContext(ctx, query, userID)
	err := row.Scan(&profile.ID, &profile.UserID, &profile.DisplayName, &profile.AvatarKey,
		&profile.Configuration, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return profile, nil
}

func (r *PostgresRepository) Update(ctx context.Context, profile *models.Profile) error {

	query := `UPDATE profiles SET display_name = $1, avatar_key = $2, configuration = $3, updated_at = now()
		WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query,
		profile.DisplayName, profile.AvatarKey, profile.Configuration, profile.ID)
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
