// Package avatars stores profile avatar images. Two backends implement the
// same contract: an S3-compatible object store and a local directory for
// development.
package avatars

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fastkeeper/internal/server/config"
)

// Store is the avatar storage contract. Keys are opaque to callers and
// persisted on the profile row.
type Store interface {
	// Save writes the avatar and returns its storage key. Saving over an
	// existing key replaces the object.
	Save(ctx context.Context, userID, ext string, data []byte) (string, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns an address the browser can fetch the avatar from.
	URL(ctx context.Context, key string) (string, error)
}

// Key builds the storage key for a user's avatar. One avatar per user; the
// extension comes from the decoded image format.
func Key(userID, ext string) string {
	return fmt.Sprintf("avatars/user_%s/avatar%s", userID, ext)
}

// NewStore picks the backend named by the configuration.
func NewStore(cfg *config.Config) (Store, error) {
	switch cfg.AvatarBackend {
	case "s3":
		return NewS3Store(cfg), nil
	case "disk":
		return NewDiskStore(cfg.AvatarDir)
	default:
		return nil, fmt.Errorf("unknown avatar backend: %q", cfg.AvatarBackend)
	}
}

func contentTypeForExt(ext string) string {
	if ext == ".png" {
		return "image/png"
	}
	return "image/jpeg"
}
