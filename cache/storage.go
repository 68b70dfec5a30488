package cache

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/langsync"
)

// MemoryStorage is an in-process Storage with an optional byte quota, in
// the manner of browser local storage. It is mainly used in tests.
type MemoryStorage struct {
	mu    sync.Mutex
	data  map[string]string
	quota int // bytes of keys plus values, 0 = unlimited
}

// NewMemoryStorage creates a storage holding at most quota bytes.
func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{
		data:  make(map[string]string),
		quota: quota,
	}
}

// Get returns the value stored under key.
func (s *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value, failing with *langsync.StorageQuotaError when the
// quota would be exceeded. A failed Set leaves the previous value in place.
func (s *MemoryStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		used := 0
		for k, v := range s.data {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > s.quota {
			return &langsync.StorageQuotaError{Key: key, Size: len(value), Limit: s.quota}
		}
	}
	s.data[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStorage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// SetQuota changes the quota.
func (s *MemoryStorage) SetQuota(quota int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota = quota
}

// Verify MemoryStorage implements Storage
var _ langsync.Storage = (*MemoryStorage)(nil)
