package langsync

import (
	"context"
	"time"
)

// Preload queues languages for background loading. The queue is drained
// serially by a single worker with a pause between requests; languages
// already cached are skipped and failures are only logged. The returned
// channel closes once the worker has drained the queue.
func (s *Store) Preload(ctx context.Context, langs []string) <-chan struct{} {
	s.preloadMu.Lock()
	defer s.preloadMu.Unlock()

	for _, lang := range langs {
		if lang != "" && !contains(s.preloadQueue, lang) {
			s.preloadQueue = append(s.preloadQueue, lang)
		}
	}

	if s.preloadDone != nil {
		return s.preloadDone
	}

	done := make(chan struct{})
	if len(s.preloadQueue) == 0 {
		close(done)
		return done
	}
	s.preloadDone = done
	go s.runPreload(ctx, done)
	return done
}

func (s *Store) runPreload(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		s.preloadMu.Lock()
		if len(s.preloadQueue) == 0 || ctx.Err() != nil {
			s.preloadQueue = nil
			s.preloadDone = nil
			s.preloadMu.Unlock()
			return
		}
		lang := s.preloadQueue[0]
		s.preloadQueue = s.preloadQueue[1:]
		s.preloadMu.Unlock()

		if s.IsCached(lang) {
			continue
		}

		s.logger.Debug().Str("lang", lang).Msg("preloading language")
		if _, err := s.Load(ctx, lang); err != nil {
			s.logger.Warn().Err(err).Str("lang", lang).Msg("failed to preload")
		}

		if s.preloadDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.preloadDelay):
			}
		}
	}
}

// PreloadLikely preloads the languages a visitor is likely to switch to:
// the browser language when supported, the default language and English.
func (s *Store) PreloadLikely(ctx context.Context, current, browser string) <-chan struct{} {
	var langs []string
	add := func(lang string) {
		if lang != "" && lang != current && !contains(langs, lang) {
			langs = append(langs, lang)
		}
	}

	if s.cfg.IsSupported(browser) {
		add(browser)
	}
	add(s.cfg.DefaultLanguage)
	add("en")

	if len(langs) > 0 {
		s.logger.Debug().Strs("langs", langs).Msg("preloading likely languages")
	}
	return s.Preload(ctx, langs)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
