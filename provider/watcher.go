package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Invalidator drops a cached language. *langsync.Store satisfies it.
type Invalidator interface {
	Clear(ctx context.Context, lang string) error
}

// Watcher clears cached documents when their translation files change.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	target   Invalidator
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	started bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWatcher watches dir for changes to <lang>.json files.
func NewWatcher(dir string, target Invalidator, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:      dir,
		watcher:  fsw,
		target:   target,
		logger:   logger,
		debounce: 100 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.loop(ctx)
	w.logger.Info().Str("dir", w.dir).Msg("translation watcher started")
}

// Close stops watching and waits for the loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.watcher.Close()
	})

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			lang, ok := languageOf(event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(ctx, lang)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")
		}
	}
}

// schedule debounces bursts of events for one file.
func (w *Watcher) schedule(ctx context.Context, lang string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[lang]; ok {
		t.Stop()
	}
	w.timers[lang] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, lang)
		w.mu.Unlock()

		w.logger.Info().Str("lang", lang).Msg("translation file changed, clearing cache")
		if err := w.target.Clear(context.WithoutCancel(ctx), lang); err != nil {
			w.logger.Error().Err(err).Str("lang", lang).Msg("failed to clear cache")
		}
	})
}

// languageOf maps ".../fr.json" to "fr".
func languageOf(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".") {
		return "", false
	}
	lang := strings.TrimSuffix(base, ".json")
	return lang, lang != ""
}
