package avatars

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/fastkeeper/internal/filex"
)

// DiskStore keeps avatars under a local directory. The server's static route
// serves the directory at /avatars/, so URLs are site-relative.
type DiskStore struct {
	root string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("avatar dir: %w", err)
	}
	return &DiskStore{root: abs}, nil
}

// path maps a storage key onto the directory. Keys carry the avatars/ URL
// prefix; on disk the root already stands for it.
func (s *DiskStore) path(key string) string {
	rel := strings.TrimPrefix(key, "avatars/")
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *DiskStore) Save(ctx context.Context, userID, ext string, data []byte) (string, error) {
	key := Key(userID, ext)
	path := s.path(key)

	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}

	return key, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove avatar: %w", err)
	}
	return nil
}

func (s *DiskStore) URL(ctx context.Context, key string) (string, error) {
	return "/" + key, nil
}
