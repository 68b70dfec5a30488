package langsync

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitConfig paces fetches from a metered source.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained fetch rate (default: 60)
	BurstSize         int // Fetches allowed back to back (default: 1)
	Logger            zerolog.Logger
}

// RateLimitedFetcher spaces out fetches from a metered source such as
// the machine-translation fetcher. A fetch whose turn would come after
// its context ends fails at once without using a turn.
type RateLimitedFetcher struct {
	fetcher Fetcher
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewRateLimitedFetcher wraps fetcher.
func NewRateLimitedFetcher(fetcher Fetcher, cfg RateLimitConfig) *RateLimitedFetcher {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}

	return &RateLimitedFetcher{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst),
		logger:  cfg.Logger,
	}
}

// Fetch waits for the next turn, then fetches.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, lang string) (*Document, error) {
	start := time.Now()
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &NetworkFetchError{
			Lang:    lang,
			Message: "rate limit wait cancelled",
			Cause:   err,
		}
	}
	if waited := time.Since(start); waited >= time.Millisecond {
		f.logger.Debug().Str("lang", lang).Dur("waited", waited).Msg("fetch paced")
	}
	return f.fetcher.Fetch(ctx, lang)
}

// Available returns how many fetches could start without waiting.
func (f *RateLimitedFetcher) Available() float64 {
	return f.limiter.Tokens()
}
