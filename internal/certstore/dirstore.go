package certstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore writes certificate files into a directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store over dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Exists(name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.dir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write creates name exclusively; an existing file is never truncated.
func (s *DirStore) Write(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
