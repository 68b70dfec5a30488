package langsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// persistedEntry is the stored form of one cache entry. Timestamps are
// Unix milliseconds.
type persistedEntry struct {
	Data     *Document         `json:"data"`
	Metadata persistedMetadata `json:"metadata"`
}

type persistedMetadata struct {
	Timestamp    int64 `json:"timestamp"`
	LastAccessed int64 `json:"lastAccessed"`
	AccessCount  int   `json:"accessCount"`
	Version      int   `json:"version"`
}

// snapshot encodes the cache. With keep set, only those languages are included.
func (s *Store) snapshot(keep map[string]bool) ([]byte, int, error) {
	s.mu.Lock()
	out := make(map[string]persistedEntry, len(s.entries))
	for lang, e := range s.entries {
		if keep != nil && !keep[lang] {
			continue
		}
		out[lang] = persistedEntry{
			Data: e.doc,
			Metadata: persistedMetadata{
				Timestamp:    e.meta.Timestamp.UnixMilli(),
				LastAccessed: e.meta.LastAccessed.UnixMilli(),
				AccessCount:  e.meta.AccessCount,
				Version:      e.meta.Version,
			},
		}
	}
	s.mu.Unlock()

	data, err := json.Marshal(out)
	return data, len(out), err
}

// Persist writes the cache to storage. When storage is full it retries
// with only the active and default languages, and removes the persisted
// cache if that fails too. Quota problems are handled here and never
// returned; other storage failures are.
func (s *Store) Persist(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	data, n, err := s.snapshot(nil)
	if err != nil {
		s.metrics.persistFailure()
		return &StorageError{Message: "encoding cache", Cause: err}
	}

	err = s.storage.Set(ctx, s.cfg.CacheKey, string(data))
	if err == nil {
		s.logger.Debug().Int("languages", n).Msg("cache persisted")
		return nil
	}
	s.metrics.persistFailure()

	var quota *StorageQuotaError
	if !errors.As(err, &quota) {
		s.logger.Error().Err(err).Msg("error persisting cache")
		return &StorageError{Message: "persisting cache", Cause: err}
	}

	s.logger.Warn().Err(err).Msg("storage quota exceeded, persisting reduced cache")
	keep := map[string]bool{s.cfg.DefaultLanguage: true}
	if active := s.Active(); active != "" {
		keep[active] = true
	}
	data, n, err = s.snapshot(keep)
	if err == nil {
		err = s.storage.Set(ctx, s.cfg.CacheKey, string(data))
	}
	if err == nil {
		s.logger.Info().Int("languages", n).Msg("reduced cache persisted")
		return nil
	}

	s.metrics.persistFailure()
	s.logger.Error().Err(err).Msg("failed to persist reduced cache, clearing persisted cache")
	if rmErr := s.storage.Remove(ctx, s.cfg.CacheKey); rmErr != nil {
		s.logger.Error().Err(rmErr).Msg("failed to clear persisted cache")
	}
	return nil
}

// Restore loads persisted entries that are within the TTL and carry the
// current schema version, returning how many were restored. A corrupt
// payload is removed from storage.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.storage == nil {
		return 0, nil
	}

	raw, ok, err := s.storage.Get(ctx, s.cfg.CacheKey)
	if err != nil {
		return 0, &StorageError{Message: "reading persisted cache", Cause: err}
	}
	if !ok {
		return 0, nil
	}

	var persisted map[string]persistedEntry
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		s.logger.Error().Err(err).Msg("error initializing cache from storage, clearing it")
		if rmErr := s.storage.Remove(ctx, s.cfg.CacheKey); rmErr != nil {
			s.logger.Error().Err(rmErr).Msg("failed to clear persisted cache")
		}
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	restored := 0
	for lang, item := range persisted {
		if item.Data == nil {
			continue
		}
		e := &cacheEntry{
			doc: item.Data.withLang(lang),
			meta: EntryMetadata{
				Timestamp:    time.UnixMilli(item.Metadata.Timestamp),
				LastAccessed: time.UnixMilli(item.Metadata.LastAccessed),
				AccessCount:  item.Metadata.AccessCount,
				Version:      item.Metadata.Version,
			},
		}
		if !s.valid(e, now) {
			continue
		}
		s.seq++
		e.seq = s.seq
		s.entries[lang] = e
		restored++
		s.logger.Debug().Str("lang", lang).Msg("restored cached translations")
	}
	s.evictLocked("")

	s.logger.Info().Int("languages", len(s.entries)).Msg("cache initialized from storage")
	return restored, nil
}

// Start launches periodic persistence. It returns immediately; the
// goroutine stops when ctx ends or Close is called.
func (s *Store) Start(ctx context.Context) {
	if s.storage == nil || s.persistInterval <= 0 {
		return
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(s.persistInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-s.stop:
					return
				case <-ticker.C:
					if err := s.Persist(ctx); err != nil {
						s.logger.Error().Err(err).Msg("periodic persistence failed")
					}
				}
			}
		}()
	})
}

// Close stops background persistence and persists the cache one last time.
func (s *Store) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return s.Persist(ctx)
}
