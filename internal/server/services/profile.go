package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/fastkeeper/internal/dbx"
	"github.com/dmitrijs2005/fastkeeper/internal/server/avatars"
	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
	"github.com/dmitrijs2005/fastkeeper/internal/server/repositories/repomanager"
)

// ProfileService manages display names, the per-app configuration store, and
// avatars. Configuration writes are read-modify-write under a row lock so
// concurrent updates cannot drop each other's keys.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       avatars.Store
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, store avatars.Store) *ProfileService {
	return &ProfileService{
		db:          db,
		repomanager: m,
		store:       store,
	}
}

// Get returns the profile owned by userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return s.repomanager.Profiles(s.db).GetByUserID(ctx, userID)
}

// UpdateDisplayName changes the profile's display name.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, userID, displayName string) (*models.Profile, error) {
	var updated *models.Profile

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Profiles(tx)

		profile, err := repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		profile.DisplayName = strings.TrimSpace(displayName)
		if err := profile.Validate(); err != nil {
			return err
		}
		if err := repo.Update(ctx, profile); err != nil {
			return err
		}

		updated = profile
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// SetConfiguration stores value under (appName, key) and persists immediately.
func (s *ProfileService) SetConfiguration(ctx context.Context, userID, appName, key string, value any) (*models.Profile, error) {
	var errs models.ValidationErrors
	if appName == "" {
		errs = append(errs, &models.ValidationError{Field: "app_name", Message: "App name is required."})
	}
	if key == "" {
		errs = append(errs, &models.ValidationError{Field: "key", Message: "Key is required."})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return s.updateConfiguration(ctx, userID, func(c *models.Configuration) {
		c.Set(appName, key, value)
	})
}

// DeleteConfiguration removes one key, or the whole app entry when key is
// empty. Missing entries are a no-op.
func (s *ProfileService) DeleteConfiguration(ctx context.Context, userID, appName, key string) (*models.Profile, error) {
	if appName == "" {
		return nil, models.ValidationErrors{{Field: "app_name", Message: "App name is required."}}
	}

	return s.updateConfiguration(ctx, userID, func(c *models.Configuration) {
		c.Delete(appName, key)
	})
}

func (s *ProfileService) updateConfiguration(ctx context.Context, userID string, change func(*models.Configuration)) (*models.Profile, error) {
	var updated *models.Profile

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Profiles(tx)

		profile, err := repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		change(&profile.Configuration)
		if err := repo.Update(ctx, profile); err != nil {
			return err
		}

		updated = profile
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdateAvatar validates and stores a new avatar, then points the profile at
// it. A previous avatar stored under a different key is removed afterwards;
// the profile row is the source of truth, so removal failures are not fatal.
func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, data []byte) (*models.Profile, error) {
	ext, err := avatars.Validate(data)
	if err != nil {
		return nil, err
	}

	key, err := s.store.Save(ctx, userID, ext, data)
	if err != nil {
		return nil, err
	}

	var updated *models.Profile
	var oldKey string

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Profiles(tx)

		profile, err := repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		oldKey = profile.AvatarKey
		profile.AvatarKey = key
		if err := repo.Update(ctx, profile); err != nil {
			return err
		}

		updated = profile
		return nil
	}); err != nil {
		return nil, err
	}

	if oldKey != "" && oldKey != key {
		_ = s.store.Delete(ctx, oldKey)
	}

	return updated, nil
}

// DeleteAvatar clears the profile's avatar and removes the stored object.
func (s *ProfileService) DeleteAvatar(ctx context.Context, userID string) (*models.Profile, error) {
	var updated *models.Profile
	var oldKey string

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Profiles(tx)

		profile, err := repo.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		oldKey = profile.AvatarKey
		profile.AvatarKey = ""
		if err := repo.Update(ctx, profile); err != nil {
			return err
		}

		updated = profile
		return nil
	}); err != nil {
		return nil, err
	}

	if oldKey != "" {
		_ = s.store.Delete(ctx, oldKey)
	}

	return updated, nil
}

// AvatarURL resolves the profile's avatar into a fetchable address, or ""
// when no avatar is set.
func (s *ProfileService) AvatarURL(ctx context.Context, profile *models.Profile) (string, error) {
	if profile.AvatarKey == "" {
		return "", nil
	}
	return s.store.URL(ctx, profile.AvatarKey)
}
