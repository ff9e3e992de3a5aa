package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// FileStore serves assets from a local directory tree.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// List returns the regular files directly inside folder. A missing folder is
// an empty listing.
func (s *FileStore) List(_ context.Context, folder string) ([]string, error) {
	rel, err := cleanRel(folder)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, path.Join(rel, e.Name()))
		}
	}
	return out, nil
}

func (s *FileStore) Read(_ context.Context, assetPath string) ([]byte, error) {
	rel, err := cleanRel(assetPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", assetPath, err)
	}
	return data, nil
}

func (s *FileStore) Stat(_ context.Context, assetPath string) error {
	rel, err := cleanRel(assetPath)
	if err != nil {
		return err
	}
	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", assetPath, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", assetPath, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("stat %s: %w", assetPath, ErrNotExist)
	}
	return nil
}
