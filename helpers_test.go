package langsync

import (
	"context"
	"sync"
	"time"
)

// fakeFetcher serves flat documents and counts calls per language.
type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string]map[string]string
	fail  map[string]error
	calls map[string]int
	gate  chan struct{} // when non-nil, fetches block until closed
}

func newFakeFetcher(docs map[string]map[string]string) *fakeFetcher {
	return &fakeFetcher{
		docs:  docs,
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, lang string) (*Document, error) {
	f.mu.Lock()
	f.calls[lang]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[lang]; ok {
		return nil, err
	}
	flat, ok := f.docs[lang]
	if !ok {
		return nil, &NetworkFetchError{Lang: lang, StatusCode: 404, Message: "unexpected response"}
	}
	return DocumentFromFlat(lang, flat), nil
}

func (f *fakeFetcher) count(lang string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[lang]
}

func testDocs() map[string]map[string]string {
	return map[string]map[string]string{
		"ko": {"app.title": "테스트", "params.welcome": "환영합니다, {name}!"},
		"en": {"app.description": "Find your type", "params.welcome": "Welcome, {name}!"},
		"es": {"app.title": "Prueba"},
		"fr": {"app.title": "Test FR"},
		"ja": {"app.title": "テスト"},
	}
}

// fakeStorage is a map with an optional byte quota and injectable errors.
type fakeStorage struct {
	mu      sync.Mutex
	data    map[string]string
	quota   int
	failSet error
	sets    int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string]string)}
}

func (s *fakeStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *fakeStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.failSet != nil {
		return s.failSet
	}
	if s.quota > 0 && len(value) > s.quota {
		return &StorageQuotaError{Key: key, Size: len(value), Limit: s.quota}
	}
	s.data[key] = value
	return nil
}

func (s *fakeStorage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *fakeStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
