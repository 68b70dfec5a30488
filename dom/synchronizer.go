package dom

import (
	"context"
	"errors"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/langsync"
	"github.com/ZaguanLabs/langsync/cache"
	"github.com/rs/zerolog"
)

const titleRecord = "\x00title"

// Synchronizer keeps the marked elements of a Document in the active
// language. It is safe for concurrent use.
type Synchronizer struct {
	store  *langsync.Store
	doc    *Document
	prefs  *langsync.Preferences
	logger zerolog.Logger

	resolvedSize int
	appliedSize  int

	mu       sync.Mutex
	lang     string
	current  *langsync.Document
	indexed  bool
	bindings []*Binding
	titleKey string
	resolved cache.TranslationCache // ResolvedKey -> string
	applied  cache.TranslationCache // element id -> last written string
}

// Option is a functional option for configuring the Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithResolvedCacheSize bounds the memoized resolutions (default 1000).
func WithResolvedCacheSize(n int) Option {
	return func(s *Synchronizer) {
		s.resolvedSize = n
	}
}

// WithAppliedCacheSize bounds the applied-value records (default 500).
// The bound grows to cover every indexed element.
func WithAppliedCacheSize(n int) Option {
	return func(s *Synchronizer) {
		s.appliedSize = n
	}
}

// WithPreferences saves the chosen language after each switch.
func WithPreferences(p *langsync.Preferences) Option {
	return func(s *Synchronizer) {
		s.prefs = p
	}
}

// New creates a synchronizer writing documents from store into doc.
func New(store *langsync.Store, doc *Document, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:        store,
		doc:          doc,
		logger:       zerolog.Nop(),
		resolvedSize: 1000,
		appliedSize:  500,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolved = cache.NewInMemoryCache(s.resolvedSize, 0)
	s.applied = cache.NewInMemoryCache(s.appliedSize, 0)
	return s
}

// Language returns the active language code, "" before the first switch.
func (s *Synchronizer) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Current returns the active translation document.
func (s *Synchronizer) Current() *langsync.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Translate resolves key in the active document with {name} parameters
// substituted. Unresolved keys come back verbatim.
func (s *Synchronizer) Translate(key string, params map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translateLocked(key, params)
}

func (s *Synchronizer) translateLocked(key string, params map[string]string) string {
	if s.current == nil {
		return key
	}

	memo := langsync.ResolvedKey(s.current.Lang(), key, params)
	if v, ok := s.resolved.Get(memo); ok {
		return v
	}

	v, err := langsync.Resolve(s.current, key, params)
	if err != nil {
		var warn *langsync.KeyNotFoundWarning
		if errors.As(err, &warn) {
			s.logger.Warn().Str("lang", warn.Lang).Str("key", warn.Key).Msg(warn.Error())
		}
	}
	s.resolved.Set(memo, v)
	return v
}

// Apply writes changed translations to the document and returns how many
// elements were updated. Writes are deferred to one frame.
func (s *Synchronizer) Apply() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked()
}

func (s *Synchronizer) applyLocked() int {
	if !s.indexed {
		s.doc.do(func(doc *goquery.Document) {
			s.bindings, s.titleKey = scan(doc)
		})
		s.indexed = true
		s.logger.Debug().Int("elements", len(s.bindings)).Msg("indexed translatable elements")

		// Every indexed element and the title keep their record, or each
		// pass would evict the next element's record and rewrite the page.
		s.applied = cache.NewInMemoryCache(max(s.appliedSize, len(s.bindings)+1), 0)
	}

	type update struct {
		b     *Binding
		value string
	}
	var updates []update
	for _, b := range s.bindings {
		if !b.Target.Writable() {
			continue
		}
		value := s.translateLocked(b.Key, b.Params)
		if prev, ok := s.applied.Get(b.ID); ok && prev == value {
			continue
		}
		s.applied.Set(b.ID, value)
		updates = append(updates, update{b, value})
	}

	title, setTitle := "", false
	if s.titleKey != "" {
		title = s.translateLocked(s.titleKey, nil)
		if prev, ok := s.applied.Get(titleRecord); !ok || prev != title {
			s.applied.Set(titleRecord, title)
			setTitle = true
		}
	}

	if len(updates) == 0 && !setTitle {
		s.logger.Debug().Msg("no translation updates needed")
		return 0
	}

	s.doc.frames.RequestFrame(func() {
		s.doc.do(func(doc *goquery.Document) {
			for _, u := range updates {
				write(u.b, u.value)
			}
			if setTitle {
				writeTitle(doc, title)
			}
		})
	})

	s.logger.Debug().Int("elements", len(updates)).Msg("translations scheduled")
	return len(updates)
}

// InvalidateElementIndex makes the next Apply re-scan the document and
// forgets the applied values, whose element ids may now name other
// elements. With clearResolved the memoized resolutions go too.
func (s *Synchronizer) InvalidateElementIndex(clearResolved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.indexed = false
	s.bindings = nil
	s.titleKey = ""
	s.applied.Clear()
	if clearResolved {
		s.resolved.Clear()
	}
}

// Refresh re-scans the document and applies the active language.
func (s *Synchronizer) Refresh(clearResolved bool) int {
	s.InvalidateElementIndex(clearResolved)
	return s.Apply()
}

// SetLanguage switches to lang: the resolved cache is cleared, the
// document loaded, translations applied, text direction updated and the
// choice saved as the preference. Switching to the active language is a
// no-op. Only an unrecoverable load failure is returned.
func (s *Synchronizer) SetLanguage(ctx context.Context, lang string) (langsync.Language, error) {
	cfg := s.store.Config()

	s.mu.Lock()
	if s.current != nil && s.lang == lang {
		current := s.current.Lang()
		s.mu.Unlock()
		s.logger.Debug().Str("lang", lang).Msg("already using language")
		return descriptor(cfg, lang, current), nil
	}
	s.resolved.Clear()
	s.mu.Unlock()

	doc, err := s.store.Load(ctx, lang)
	if err != nil {
		s.logger.Error().Err(err).Str("lang", lang).Msg("failed to switch language")
		return langsync.Language{}, err
	}

	// Root attributes and the switcher follow the active language under s.mu.
	s.mu.Lock()
	s.lang = lang
	s.current = doc
	updated := s.applyLocked()
	s.store.SetActive(lang)

	applied := descriptor(cfg, doc.Lang(), doc.Lang())
	s.doc.do(func(d *goquery.Document) {
		root := d.Find("html").First()
		root.SetAttr("dir", applied.Direction())
		root.SetAttr("lang", applied.HTMLLang())
	})
	s.updateSwitcher(applied)
	s.mu.Unlock()

	if s.prefs != nil {
		if err := s.prefs.Save(ctx, lang); err != nil {
			s.logger.Error().Err(err).Msg("failed to save language preference")
		}
	}

	s.logger.Info().Str("lang", lang).Str("applied", doc.Lang()).Int("updated", updated).Msg("language changed")
	return descriptor(cfg, lang, doc.Lang()), nil
}

// Init picks the starting language (saved preference, browser language,
// default), switches to it and preloads the languages a visitor is
// likely to switch to in the background.
func (s *Synchronizer) Init(ctx context.Context, browser string) (langsync.Language, error) {
	cfg := s.store.Config()
	browser = langsync.DetectLanguage(browser)

	lang := cfg.DefaultLanguage
	if s.prefs != nil {
		lang = s.prefs.Preferred(ctx, browser)
	} else if cfg.IsSupported(browser) {
		lang = browser
	}

	l, err := s.SetLanguage(ctx, lang)
	if err != nil {
		return l, err
	}
	s.store.PreloadLikely(ctx, lang, browser)
	return l, nil
}

// ResolvedLen returns the number of memoized resolutions.
func (s *Synchronizer) ResolvedLen() int {
	return s.resolved.Len()
}

// AppliedLen returns the number of applied-value records.
func (s *Synchronizer) AppliedLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied.Len()
}

// updateSwitcher reflects the language in the #languageDropdown widget,
// if the page has one.
func (s *Synchronizer) updateSwitcher(l langsync.Language) {
	s.doc.frames.RequestFrame(func() {
		s.doc.do(func(d *goquery.Document) {
			dropdown := d.Find("#languageDropdown")
			if dropdown.Length() == 0 {
				return
			}
			if l.Flag != "" {
				dropdown.Find(".flag-icon").
					SetAttr("src", "assets/images/flags/"+l.Flag+".svg").
					SetAttr("alt", l.Name+" Flag")
			}
			name := l.NativeName
			if name == "" {
				name = l.Name
			}
			dropdown.Find(".language-name").SetText(name)

			d.Find(".language-dropdown .dropdown-item").Each(func(_ int, item *goquery.Selection) {
				if code, _ := item.Attr("data-language"); code == l.Code {
					item.AddClass("active")
				} else {
					item.RemoveClass("active")
				}
			})
		})
	})
}

// descriptor returns the descriptor for code, then for fallback, then
// the default language.
func descriptor(cfg langsync.Config, code, fallback string) langsync.Language {
	if l, ok := cfg.Lookup(code); ok {
		return l
	}
	if l, ok := cfg.Lookup(fallback); ok {
		return l
	}
	return cfg.Default()
}

func writeTitle(doc *goquery.Document, title string) {
	t := doc.Find("title").First()
	if t.Length() == 0 {
		head := doc.Find("head").First()
		if head.Length() == 0 {
			return
		}
		head.AppendHtml("<title></title>")
		t = head.Find("title").First()
	}
	t.SetText(title)
}
