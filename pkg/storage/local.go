package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// stagingSuffix marks a blob mid-write. List skips these so a crash during
// Write never surfaces a half-staged session to Cleanup.
const stagingSuffix = ".partial"

// LocalStorage keeps blobs as plain files under a base directory. Writes
// land in a staging file and are renamed into place, and locking is per
// path, so sessions staged under different ids never contend.
type LocalStorage struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path %q: %w", basePath, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %q: %w", abs, err)
	}
	return &LocalStorage{
		basePath: abs,
		locks:    map[string]*sync.Mutex{},
	}, nil
}

// resolve maps a storage path onto the filesystem. Cleaning with a leading
// slash pins the result under the base directory, so a path carrying ".."
// cannot escape it.
func (s *LocalStorage) resolve(path string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+path))
}

func (s *LocalStorage) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

func (s *LocalStorage) Read(_ context.Context, path string) ([]byte, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (s *LocalStorage) Write(_ context.Context, path string, data []byte) error {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	full := s.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	// Stage then rename, so a concurrent Read sees either the previous blob
	// or the new one, never a torn write.
	staging := full + stagingSuffix
	if err := os.WriteFile(staging, data, 0o600); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	if err := os.Rename(staging, full); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("failed to publish %s: %w", path, err)
	}
	return nil
}

func (s *LocalStorage) Delete(_ context.Context, path string) error {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(s.resolve(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// List returns the storage paths of the blobs directly under prefix.
// A missing prefix directory is an empty listing, not an error.
func (s *LocalStorage) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.resolve(prefix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), stagingSuffix) {
			continue
		}
		paths = append(paths, strings.TrimPrefix(filepath.Join(prefix, entry.Name()), "/"))
	}
	return paths, nil
}

func (s *LocalStorage) Exists(_ context.Context, path string) (bool, error) {
	if _, err := os.Stat(s.resolve(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return true, nil
}
