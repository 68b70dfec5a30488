package langsync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store resolves language codes to translation documents. It owns the
// in-memory cache and is safe for concurrent use.
type Store struct {
	cfg     Config
	fetcher Fetcher
	storage Storage
	logger  zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	maxEntries      int
	ttl             time.Duration
	persistInterval time.Duration
	preloadDelay    time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	seq     uint64 // access order, breaks LRU timestamp ties
	active  string

	group singleflight.Group

	preloadMu    sync.Mutex
	preloadQueue []string
	preloadDone  chan struct{} // non-nil while the preload worker runs

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

// cacheEntry is a cached document with its metadata.
type cacheEntry struct {
	doc  *Document
	meta EntryMetadata
	seq  uint64
}

// StoreOption is a functional option for configuring the Store.
type StoreOption func(*Store)

// WithStorage sets the durable storage used for cache persistence.
func WithStorage(storage Storage) StoreOption {
	return func(s *Store) {
		s.storage = storage
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// WithMaxEntries bounds the number of cached languages (minimum 1).
func WithMaxEntries(n int) StoreOption {
	return func(s *Store) {
		if n < 1 {
			n = 1
		}
		s.maxEntries = n
	}
}

// WithTTL sets how long a cached document stays valid. Zero disables expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPersistInterval sets the period of background persistence.
func WithPersistInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		s.persistInterval = d
	}
}

// WithPreloadDelay sets the pause between background preload requests.
func WithPreloadDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		s.preloadDelay = d
	}
}

// NewStore creates a Store for the given catalogue and fetcher.
func NewStore(cfg Config, fetcher Fetcher, opts ...StoreOption) *Store {
	if cfg.CacheKey == "" {
		cfg.CacheKey = DefaultCacheKey
	}
	s := &Store{
		cfg:             cfg,
		fetcher:         fetcher,
		logger:          zerolog.Nop(),
		now:             time.Now,
		maxEntries:      15,
		ttl:             24 * time.Hour,
		persistInterval: 5 * time.Minute,
		preloadDelay:    300 * time.Millisecond,
		entries:         make(map[string]*cacheEntry),
		stop:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Config returns the store's language catalogue.
func (s *Store) Config() Config {
	return s.cfg
}

// DefaultLanguage returns the code of the default language.
func (s *Store) DefaultLanguage() string {
	return s.cfg.DefaultLanguage
}

// Load returns the document for lang. Cached documents are returned
// without a fetch; concurrent loads of the same code share one fetch; a
// failed fetch falls back to the default language. Only a failure of the
// default language itself is returned, as *TranslationLoadError.
//
// The fetch is not cancelled when ctx ends; the caller just stops waiting.
func (s *Store) Load(ctx context.Context, lang string) (*Document, error) {
	if doc, ok := s.get(lang); ok {
		s.metrics.hit()
		s.logger.Debug().Str("lang", lang).Msg("using cached translations")
		return doc, nil
	}
	s.metrics.miss()

	ch := s.group.DoChan(lang, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), lang)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("lang", lang).Msg("joined in-flight load")
		}
		return res.Val.(*Document), nil
	}
}

// fetch runs inside the singleflight group for lang.
func (s *Store) fetch(ctx context.Context, lang string) (*Document, error) {
	// A flight that finished just before this one started may have filled the cache.
	if doc, ok := s.get(lang); ok {
		return doc, nil
	}

	s.logger.Debug().Str("lang", lang).Msg("loading translations")
	doc, err := s.fetcher.Fetch(ctx, lang)
	if err == nil && doc == nil {
		err = &NetworkFetchError{Lang: lang, Message: "fetcher returned no document"}
	}
	if err != nil {
		s.metrics.fetch(false)
		s.logger.Error().Err(err).Str("lang", lang).Msg("error loading translations")

		if lang == s.cfg.DefaultLanguage {
			return nil, &TranslationLoadError{Lang: lang, Cause: err}
		}
		s.metrics.fallback()
		s.logger.Info().Str("lang", lang).Str("default", s.cfg.DefaultLanguage).
			Msg("falling back to default language")
		return s.Load(ctx, s.cfg.DefaultLanguage)
	}

	s.metrics.fetch(true)
	doc = doc.withLang(lang)
	s.put(lang, doc)
	s.logger.Info().Str("lang", lang).Int("keys", doc.Len()).Msg("translations loaded")
	return doc, nil
}

// get returns a valid cached document and records the access. Expired or
// outdated entries are dropped.
func (s *Store) get(lang string) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[lang]
	if !ok {
		return nil, false
	}
	now := s.now()
	if !s.valid(e, now) {
		delete(s.entries, lang)
		s.metrics.evict("expired")
		return nil, false
	}

	s.seq++
	e.seq = s.seq
	e.meta.LastAccessed = now
	e.meta.AccessCount++
	return e.doc, true
}

func (s *Store) valid(e *cacheEntry, now time.Time) bool {
	if e.meta.Version != SchemaVersion {
		return false
	}
	return s.ttl <= 0 || now.Sub(e.meta.Timestamp) <= s.ttl
}

// put inserts a fresh entry and then enforces the size bound.
func (s *Store) put(lang string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.seq++
	s.entries[lang] = &cacheEntry{
		doc: doc,
		meta: EntryMetadata{
			Timestamp:    now,
			LastAccessed: now,
			Version:      SchemaVersion,
		},
		seq: s.seq,
	}
	s.evictLocked(lang)
}

// evictLocked restores the size bound: expired entries go first, then the
// least recently used entry other than the default language. The entry
// named by inserted is only chosen when nothing else is eligible.
func (s *Store) evictLocked(inserted string) {
	if len(s.entries) <= s.maxEntries {
		return
	}

	now := s.now()
	for lang, e := range s.entries {
		if !s.valid(e, now) {
			delete(s.entries, lang)
			s.metrics.evict("expired")
			s.logger.Debug().Str("lang", lang).Msg("expired cache item removed")
		}
	}

	for len(s.entries) > s.maxEntries {
		victim := s.lruVictimLocked(inserted)
		if victim == "" {
			return
		}
		delete(s.entries, victim)
		s.metrics.evict("lru")
		s.logger.Debug().Str("lang", victim).Msg("least recently used cache item removed")
	}
}

func (s *Store) lruVictimLocked(inserted string) string {
	var victim string
	var oldest *cacheEntry
	for lang, e := range s.entries {
		if lang == s.cfg.DefaultLanguage || lang == inserted {
			continue
		}
		if oldest == nil || e.meta.LastAccessed.Before(oldest.meta.LastAccessed) ||
			(e.meta.LastAccessed.Equal(oldest.meta.LastAccessed) && e.seq < oldest.seq) {
			victim, oldest = lang, e
		}
	}
	if victim == "" && inserted != "" && inserted != s.cfg.DefaultLanguage {
		if _, ok := s.entries[inserted]; ok {
			return inserted
		}
	}
	return victim
}

// Clear removes the entry for lang, or every entry when lang is empty,
// and brings persisted storage in line.
func (s *Store) Clear(ctx context.Context, lang string) error {
	s.mu.Lock()
	if lang != "" {
		delete(s.entries, lang)
	} else {
		s.entries = make(map[string]*cacheEntry)
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if lang != "" {
		s.logger.Info().Str("lang", lang).Msg("cache cleared")
	} else {
		s.logger.Info().Msg("cache cleared for all languages")
	}

	if s.storage == nil {
		return nil
	}
	if remaining > 0 {
		return s.Persist(ctx)
	}
	if err := s.storage.Remove(ctx, s.cfg.CacheKey); err != nil {
		return &StorageError{Message: "removing persisted cache", Cause: err}
	}
	return nil
}

// IsCached reports whether a valid entry exists for lang. It does not
// count as an access.
func (s *Store) IsCached(lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[lang]
	return ok && s.valid(e, s.now())
}

// Len returns the number of cached languages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CachedLanguages returns the sorted codes of cached languages.
func (s *Store) CachedLanguages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.entries))
	for lang := range s.entries {
		codes = append(codes, lang)
	}
	sort.Strings(codes)
	return codes
}

// Metadata returns a copy of the metadata for a cached language.
func (s *Store) Metadata(lang string) (EntryMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[lang]
	if !ok {
		return EntryMetadata{}, false
	}
	return e.meta, true
}

// SetActive records the language currently shown to the user. Reduced
// persistence keeps it alongside the default language.
func (s *Store) SetActive(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = lang
}

// Active returns the language recorded by SetActive.
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IsFatal reports whether err is the unrecoverable load failure.
func IsFatal(err error) bool {
	var loadErr *TranslationLoadError
	return errors.As(err, &loadErr)
}
