package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const fileSuffix = ".json"

// Dir stores every key as a file in a directory. Writes go to a temp file
// that is renamed over the target, so readers never see a torn value.
type Dir struct {
	root string
}

// NewDir creates the directory if needed and returns a store rooted there.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory backing the store.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the file that holds key.
func (d *Dir) Path(key string) string {
	return filepath.Join(d.root, FileName(key))
}

// FileName maps a key to its file name. Separators are flattened so keys never
// escape the root.
func FileName(key string) string {
	r := strings.NewReplacer(":", "_", "/", "_", `\`, "_")
	return r.Replace(key) + fileSuffix
}

func (d *Dir) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(d.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, key, err)
	}
	return data, nil
}

func (d *Dir) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrUnavailable, key, err)
	}
	if err := os.Rename(tmpName, d.Path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

func (d *Dir) Delete(_ context.Context, key string) error {
	err := os.Remove(d.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %v", ErrUnavailable, key, err)
	}
	return nil
}
