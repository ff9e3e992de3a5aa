// Package assets lists and reads card images grouped in one folder per
// rarity tier. Paths handed out by List are "<folder>/<file>" and are accepted
// back by Read.
package assets

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	ErrInvalidPath = errors.New("invalid asset path")
	ErrNotExist    = errors.New("asset does not exist")
)

type Store interface {
	List(ctx context.Context, folder string) ([]string, error)
	Read(ctx context.Context, assetPath string) ([]byte, error)
	// Stat reports whether assetPath still exists. A missing asset wraps
	// ErrNotExist.
	Stat(ctx context.Context, assetPath string) error
}

// cleanRel normalises a slash separated relative path and rejects anything
// escaping the asset root.
func cleanRel(p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if p == "" || p == "." {
		return "", ErrInvalidPath
	}
	return p, nil
}
