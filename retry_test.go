package langsync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

// outageFetcher fails each language with the queued errors before
// handing it to the next fetcher.
type outageFetcher struct {
	mu    sync.Mutex
	errs  map[string][]error
	calls map[string]int
	next  Fetcher
}

func newOutageFetcher(next Fetcher) *outageFetcher {
	return &outageFetcher{
		errs:  make(map[string][]error),
		calls: make(map[string]int),
		next:  next,
	}
}

func (f *outageFetcher) failWith(lang string, statuses ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, status := range statuses {
		f.errs[lang] = append(f.errs[lang], &NetworkFetchError{
			Lang:       lang,
			StatusCode: status,
			Message:    "unexpected response",
			Retryable:  status == http.StatusTooManyRequests || status >= 500,
		})
	}
}

func (f *outageFetcher) Fetch(ctx context.Context, lang string) (*Document, error) {
	f.mu.Lock()
	f.calls[lang]++
	if queued := f.errs[lang]; len(queued) > 0 {
		f.errs[lang] = queued[1:]
		f.mu.Unlock()
		return nil, queued[0]
	}
	f.mu.Unlock()
	return f.next.Fetch(ctx, lang)
}

func (f *outageFetcher) count(lang string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[lang]
}

func fastRetries(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: 5 * time.Millisecond, MaxDelay: 20 * time.Millisecond}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", &NetworkFetchError{Lang: "fr", StatusCode: 429, Retryable: true}, true},
		{"server error", &NetworkFetchError{Lang: "fr", StatusCode: 503, Retryable: true}, true},
		{"missing document", &NetworkFetchError{Lang: "fr", StatusCode: 404}, false},
		{"malformed document", &NetworkFetchError{Lang: "fr", Message: "malformed translation document"}, false},
		{"inside load failure", &TranslationLoadError{Lang: "ko", Cause: &NetworkFetchError{StatusCode: 502, Retryable: true}}, true},
		{"plain error", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryableFetcher_RecoversFromOutage(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))
	source.failWith("es", 503, 429)

	doc, err := NewRetryableFetcher(source, fastRetries(3)).Fetch(context.Background(), "es")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if v, _ := doc.Lookup("app.title"); v != "Prueba" {
		t.Errorf("app.title = %q", v)
	}
	if source.count("es") != 3 {
		t.Errorf("es fetched %d times, want 3", source.count("es"))
	}
}

func TestRetryableFetcher_MissingDocumentNotRetried(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))

	_, err := NewRetryableFetcher(source, fastRetries(3)).Fetch(context.Background(), "xx")
	var fetchErr *NetworkFetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != 404 {
		t.Fatalf("expected the 404 back, got %v", err)
	}
	if source.count("xx") != 1 {
		t.Errorf("404 fetched %d times", source.count("xx"))
	}
}

func TestRetryableFetcher_GivesUpWithLastFailure(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))
	source.failWith("fr", 503, 502, 429, 500)

	_, err := NewRetryableFetcher(source, fastRetries(2)).Fetch(context.Background(), "fr")
	var fetchErr *NetworkFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected NetworkFetchError, got %v", err)
	}
	if fetchErr.StatusCode != 429 {
		t.Errorf("status = %d, want the third failure (429)", fetchErr.StatusCode)
	}
	if source.count("fr") != 3 {
		t.Errorf("fr fetched %d times, want 3", source.count("fr"))
	}
}

func TestRetryableFetcher_NoRetries(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))
	source.failWith("ja", 503)

	if _, err := NewRetryableFetcher(source, RetryConfig{MaxRetries: -1}).Fetch(context.Background(), "ja"); err == nil {
		t.Fatal("expected the 503 back")
	}
	if source.count("ja") != 1 {
		t.Errorf("ja fetched %d times", source.count("ja"))
	}
}

func TestRetryableFetcher_CancelledWhileWaiting(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))
	source.failWith("es", 503, 503, 503)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cfg := RetryConfig{MaxRetries: 3, BaseDelay: 5 * time.Second, MaxDelay: 5 * time.Second}
	start := time.Now()
	_, err := NewRetryableFetcher(source, cfg).Fetch(ctx, "es")
	if err == nil {
		t.Fatal("expected an error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation ignored, returned after %v", elapsed)
	}
	if source.count("es") != 1 {
		t.Errorf("es fetched %d times", source.count("es"))
	}
}

func TestRetryableFetcher_StoreLoadSurvivesOutage(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))
	source.failWith("fr", 502, 503)

	store := NewStore(DefaultConfig(), NewRetryableFetcher(source, fastRetries(3)))
	doc, err := store.Load(context.Background(), "fr")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Lang() != "fr" {
		t.Errorf("loaded %q, want fr rather than the fallback", doc.Lang())
	}
	if !store.IsCached("fr") {
		t.Error("fr should be cached after the retried fetch")
	}
}
