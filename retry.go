package langsync

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// RetryConfig controls how a RetryableFetcher retries a language whose
// source failed transiently.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Wait before the first retry, doubled after each failure
	MaxDelay   time.Duration // Cap on a single wait
	Logger     zerolog.Logger
}

// DefaultRetryConfig retries three times, waiting from one second up to
// thirty.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// IsRetryable reports whether another fetch of the same language may
// succeed, as marked by the fetcher for 429, 5xx and transport failures.
// Cancellation and missing documents are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *NetworkFetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}
	return false
}

// RetryableFetcher retries retryable fetch failures with exponential
// backoff. The last failure is returned once the retries are spent.
type RetryableFetcher struct {
	fetcher Fetcher
	config  RetryConfig
}

// NewRetryableFetcher wraps fetcher.
func NewRetryableFetcher(fetcher Fetcher, cfg RetryConfig) *RetryableFetcher {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &RetryableFetcher{
		fetcher: fetcher,
		config:  cfg,
	}
}

// Fetch implements Fetcher.
func (f *RetryableFetcher) Fetch(ctx context.Context, lang string) (*Document, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.config.BaseDelay
	policy.MaxInterval = f.config.MaxDelay
	policy.RandomizationFactor = 0

	logger := f.config.Logger
	return backoff.Retry(ctx, func() (*Document, error) {
		doc, err := f.fetcher.Fetch(ctx, lang)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return doc, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(f.config.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			event := logger.Warn().Err(err).Str("lang", lang).Dur("wait", wait)
			var fetchErr *NetworkFetchError
			if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
				event = event.Int("status", fetchErr.StatusCode).
					Bool("throttled", fetchErr.StatusCode == http.StatusTooManyRequests)
			}
			event.Msg("retrying translation fetch")
		}),
	)
}
