package cache

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ZaguanLabs/langsync"
)

// FileStorage keeps each key in its own file under a directory. The total
// size of the directory is capped by a byte quota.
type FileStorage struct {
	dir   string
	quota int64 // 0 = unlimited
	mu    sync.Mutex
}

const fileSuffix = ".json"

// NewFileStorage creates a storage rooted at dir. The directory is created
// on first write.
func NewFileStorage(dir string, quota int64) *FileStorage {
	return &FileStorage{dir: dir, quota: quota}
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileSuffix)
}

// Get reads the value stored under key.
func (s *FileStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set writes value atomically. It fails with *langsync.StorageQuotaError
// when the directory would exceed its quota.
func (s *FileStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	target := s.path(key)
	if s.quota > 0 {
		used, err := s.usage(target)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.quota {
			return &langsync.StorageQuotaError{Key: key, Size: len(value), Limit: int(s.quota)}
		}
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// usage sums the sizes of stored files other than exclude.
func (s *FileStorage) usage(exclude string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		if filepath.Join(s.dir, e.Name()) == exclude {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *FileStorage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Verify FileStorage implements Storage
var _ langsync.Storage = (*FileStorage)(nil)
