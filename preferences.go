package langsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Preferences stores the visitor's chosen language code.
type Preferences struct {
	cfg     Config
	storage Storage
	logger  zerolog.Logger
}

// NewPreferences creates a preference store backed by storage.
func NewPreferences(cfg Config, storage Storage, logger zerolog.Logger) *Preferences {
	if cfg.PreferenceKey == "" {
		cfg.PreferenceKey = DefaultPreferenceKey
	}
	return &Preferences{cfg: cfg, storage: storage, logger: logger}
}

// Save records lang as the preferred language.
func (p *Preferences) Save(ctx context.Context, lang string) error {
	if lang == "" {
		return fmt.Errorf("empty language code")
	}
	if err := p.storage.Set(ctx, p.cfg.PreferenceKey, lang); err != nil {
		return &StorageError{Message: "saving language preference", Cause: err}
	}
	return nil
}

// Saved returns the stored preference, if any. Read errors count as no preference.
func (p *Preferences) Saved(ctx context.Context) (string, bool) {
	lang, ok, err := p.storage.Get(ctx, p.cfg.PreferenceKey)
	if err != nil {
		p.logger.Error().Err(err).Msg("error retrieving language preference")
		return "", false
	}
	return lang, ok && lang != ""
}

// Clear removes the stored preference.
func (p *Preferences) Clear(ctx context.Context) error {
	if err := p.storage.Remove(ctx, p.cfg.PreferenceKey); err != nil {
		return &StorageError{Message: "clearing language preference", Cause: err}
	}
	return nil
}

// Preferred picks the language to start with: the saved preference, then
// the browser language, then the default language. Only supported codes
// are returned.
func (p *Preferences) Preferred(ctx context.Context, browser string) string {
	if saved, ok := p.Saved(ctx); ok && p.cfg.IsSupported(saved) {
		return saved
	}
	if p.cfg.IsSupported(browser) {
		return browser
	}
	return p.cfg.DefaultLanguage
}
