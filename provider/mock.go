package provider

import (
	"context"
	"sync"
	"time"

	"github.com/ZaguanLabs/langsync"
)

// MockFetcher is an in-memory fetcher for testing. It counts calls per
// language and can be told to fail or to block.
type MockFetcher struct {
	mu        sync.Mutex
	documents map[string]*langsync.Document
	failures  map[string]error
	calls     map[string]int

	Delay time.Duration   // Sleep before answering
	Gate  <-chan struct{} // When set, Fetch blocks until it is closed
}

// NewMockFetcher creates a mock serving the given flat documents.
func NewMockFetcher(docs map[string]map[string]string) *MockFetcher {
	m := &MockFetcher{
		documents: make(map[string]*langsync.Document),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
	for lang, flat := range docs {
		m.documents[lang] = langsync.DocumentFromFlat(lang, flat)
	}
	return m
}

// Set replaces the document served for lang.
func (m *MockFetcher) Set(lang string, flat map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[lang] = langsync.DocumentFromFlat(lang, flat)
}

// Fail makes fetches of lang return err. A nil err clears the failure.
func (m *MockFetcher) Fail(lang string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, lang)
		return
	}
	m.failures[lang] = err
}

// Fetch implements langsync.Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, lang string) (*langsync.Document, error) {
	m.mu.Lock()
	m.calls[lang]++
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[lang]; ok {
		return nil, err
	}
	doc, ok := m.documents[lang]
	if !ok {
		return nil, &langsync.NetworkFetchError{Lang: lang, StatusCode: 404, Message: "unexpected response"}
	}
	return doc, nil
}

// Calls returns how many times lang was fetched.
func (m *MockFetcher) Calls(lang string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[lang]
}

// Reset clears the call counts.
func (m *MockFetcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

// Verify MockFetcher implements Fetcher
var _ Fetcher = (*MockFetcher)(nil)
