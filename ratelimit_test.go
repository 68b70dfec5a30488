package langsync

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimitedFetcher_SpacesFetches(t *testing.T) {
	inner := newFakeFetcher(testDocs())
	fetcher := NewRateLimitedFetcher(inner, RateLimitConfig{RequestsPerMinute: 600}) // one per 100ms

	start := time.Now()
	for _, lang := range []string{"en", "es", "fr"} {
		if _, err := fetcher.Fetch(context.Background(), lang); err != nil {
			t.Fatalf("Fetch(%s) failed: %v", lang, err)
		}
	}

	// The first fetch goes at once, the other two wait a turn each
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("three fetches took %v, expected them spaced out", elapsed)
	}
}

func TestRateLimitedFetcher_Burst(t *testing.T) {
	inner := newFakeFetcher(testDocs())
	fetcher := NewRateLimitedFetcher(inner, RateLimitConfig{RequestsPerMinute: 1, BurstSize: 2})

	start := time.Now()
	fetcher.Fetch(context.Background(), "en")
	fetcher.Fetch(context.Background(), "es")
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst fetches waited %v", elapsed)
	}
	if fetcher.Available() >= 1 {
		t.Errorf("Available = %f after the burst", fetcher.Available())
	}
}

func TestRateLimitedFetcher_Defaults(t *testing.T) {
	fetcher := NewRateLimitedFetcher(newFakeFetcher(testDocs()), RateLimitConfig{})
	if got := fetcher.Available(); got != 1 {
		t.Errorf("Available = %f, want one fetch", got)
	}
}

func TestRateLimitedFetcher_ContextCancelled(t *testing.T) {
	inner := newFakeFetcher(testDocs())
	fetcher := NewRateLimitedFetcher(inner, RateLimitConfig{RequestsPerMinute: 1})

	fetcher.Fetch(context.Background(), "en")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fetcher.Fetch(ctx, "es")
	var fetchErr *NetworkFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected NetworkFetchError when context cancelled, got %v", err)
	}
	if fetchErr.Lang != "es" || IsRetryable(err) {
		t.Errorf("unexpected error %+v", fetchErr)
	}
	if inner.count("es") != 0 {
		t.Error("es should not reach the source")
	}
}

func TestRateLimitedFetcher_RetriesTakeTurns(t *testing.T) {
	source := newOutageFetcher(newFakeFetcher(testDocs()))
	source.failWith("es", 503)

	paced := NewRateLimitedFetcher(source, RateLimitConfig{RequestsPerMinute: 600})
	fetcher := NewRetryableFetcher(paced, RetryConfig{MaxRetries: 2})

	start := time.Now()
	if _, err := fetcher.Fetch(context.Background(), "es"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("retry skipped its turn, took %v", elapsed)
	}
	if source.count("es") != 2 {
		t.Errorf("es fetched %d times, want 2", source.count("es"))
	}
}
