// Command langsync renders HTML pages in a language from translation documents.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ZaguanLabs/langsync"
	"github.com/ZaguanLabs/langsync/cache"
	"github.com/ZaguanLabs/langsync/dom"
	"github.com/ZaguanLabs/langsync/provider"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = langsync.Version
	commit    = langsync.GitCommit
	buildDate = langsync.BuildDate
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("langsync", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Flags
	targetLang := fs.String("lang", "", "Language code to render (e.g., en, ko, ar)")
	translations := fs.String("translations", "", "Translation source: directory, path template with {lang}, or URL (default: LANGSYNC_TRANSLATIONS or the page's assets/languages)")
	configPath := fs.String("config", "", "YAML language catalogue (default: built-in catalogue)")
	cacheDir := fs.String("cache-dir", "", "Directory persisting the document cache (default: LANGSYNC_CACHE_DIR)")
	redisURL := fs.String("redis-url", "", "Redis URL persisting the document cache (default: LANGSYNC_REDIS_URL)")
	output := fs.String("output", "", "Output file (default: stdout)")
	outputShort := fs.String("o", "", "Output file (short for --output)")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")
	dryRun := fs.Bool("dry-run", false, "List the page's translatable elements without loading translations")
	diffLang := fs.String("diff", "", "Report how a language's document covers the default language")
	exportPath := fs.String("export", "", "Export the persisted cache snapshot to a file")
	importPath := fs.String("import", "", "Import a cache snapshot from a file")
	useAI := fs.Bool("ai", false, "Machine-translate languages that have no document (needs OPENAI_API_KEY)")
	watch := fs.Bool("watch", false, "Render again whenever a translation file changes")
	showVersion := fs.Bool("version", false, "Show version")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", langsync.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	// Handle -o alias for --output
	if *outputShort != "" && *output == "" {
		*output = *outputShort
	}

	// A missing .env is normal; anything else is worth reporting.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	logger, err := newLogger(stderr, e.Environment, e.LogLevel)
	if err != nil {
		return err
	}
	if *quiet {
		logger = logger.Level(zerolog.ErrorLevel)
	}

	if *translations == "" {
		*translations = e.Translations
	}
	if *cacheDir == "" {
		*cacheDir = e.CacheDir
	}
	if *redisURL == "" {
		*redisURL = e.RedisURL
	}

	cfg := langsync.DefaultConfig()
	if *configPath != "" {
		cfg, err = langsync.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}

	storage, closeStorage, err := openStorage(*cacheDir, *redisURL, e.CacheQuota)
	if err != nil {
		return err
	}
	defer closeStorage()

	// Snapshot transfer needs no page and no fetching.
	if *exportPath != "" || *importPath != "" {
		if storage == nil {
			return fmt.Errorf("--export and --import need --cache-dir or --redis-url")
		}
		if *exportPath != "" {
			return runExport(ctx, storage, cfg.CacheKey, *exportPath, stdout, *quiet)
		}
		return runImport(ctx, storage, cfg.CacheKey, *importPath, stdout, *jsonOutput)
	}

	// Get input
	var input string
	var inputName string
	pageDir := "."

	if *diffLang == "" {
		if fs.NArg() == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			input = string(data)
			inputName = "stdin"
		} else {
			inputPath := fs.Arg(0)
			data, err := os.ReadFile(inputPath) // #nosec G304 - CLI tool reads user-specified files
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			input = string(data)
			inputName = filepath.Base(inputPath)
			pageDir = filepath.Dir(inputPath)
		}

		if *dryRun {
			return runDryRun(input, inputName, stdout, *jsonOutput)
		}

		if *targetLang == "" {
			fs.Usage()
			return fmt.Errorf("--lang is required")
		}
	}

	fetcher, watchDir, err := newFetcher(fetcherOptions{
		source:  *translations,
		pageDir: pageDir,
		config:  cfg,
		env:     e,
		ai:      *useAI,
		logger:  logger,
	})
	if err != nil {
		return err
	}

	opts := []langsync.StoreOption{langsync.WithLogger(logger)}
	if storage != nil {
		opts = append(opts, langsync.WithStorage(storage))
	}
	store := langsync.NewStore(cfg, fetcher, opts...)
	if n, err := store.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to restore cache")
	} else if n > 0 {
		logger.Debug().Int("entries", n).Msg("restored cache")
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error().Err(err).Msg("failed to persist cache")
		}
	}()

	if *diffLang != "" {
		return runDiff(ctx, store, *diffLang, stdout, *jsonOutput)
	}

	if !*quiet {
		fmt.Fprintf(stderr, "Rendering %s in %s...\n", inputName, *targetLang)
	}

	r := renderer{
		store:  store,
		page:   input,
		lang:   *targetLang,
		output: *output,
		stdout: stdout,
		json:   *jsonOutput,
		logger: logger,
	}
	result, err := r.render(ctx)
	if err != nil {
		return err
	}

	if !*quiet {
		fmt.Fprintf(stderr, "\nDone in %v\n", result.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(stderr, "  Language:     %s (%s)\n", result.Language, result.Direction)
		fmt.Fprintf(stderr, "  Elements:     %d\n", result.Bindings)
	}

	if !*watch {
		return nil
	}
	if watchDir == "" {
		return fmt.Errorf("--watch needs a local translation directory")
	}
	return r.watch(ctx, watchDir)
}

// openStorage returns the persistent storage selected by the flags, or
// nil when neither is set.
func openStorage(dir, redisURL string, quota int64) (langsync.Storage, func(), error) {
	switch {
	case dir != "" && redisURL != "":
		return nil, func() {}, fmt.Errorf("--cache-dir and --redis-url are mutually exclusive")
	case dir != "":
		return cache.NewFileStorage(dir, quota), func() {}, nil
	case redisURL != "":
		s, err := cache.NewRedisStorage(cache.RedisConfig{URL: redisURL, MaxBytes: int(quota)})
		if err != nil {
			return nil, func() {}, fmt.Errorf("connecting to redis: %w", err)
		}
		return s, func() { s.Close() }, nil
	}
	return nil, func() {}, nil
}

type fetcherOptions struct {
	source  string
	pageDir string
	config  langsync.Config
	env     env
	ai      bool
	logger  zerolog.Logger
}

// newFetcher builds the fetcher for a translation source. The second
// result is the local directory holding the documents, "" for URLs.
func newFetcher(o fetcherOptions) (langsync.Fetcher, string, error) {
	var base langsync.Fetcher
	var dir string

	switch {
	case isURL(o.source):
		hc := provider.HTTPConfig{Logger: o.logger}
		if strings.Contains(o.source, "{lang}") {
			hc.Template = o.source
		} else {
			hc.BaseURL = strings.TrimSuffix(o.source, "/") + "/"
			hc.Template = o.config.TranslationPath
		}
		base = provider.NewHTTPFetcher(hc)
	case o.source == "":
		ff := provider.NewFileFetcher(o.pageDir, o.config.TranslationPath)
		base, dir = ff, filepath.Dir(ff.Path("_"))
	case strings.Contains(o.source, "{lang}"):
		ff := provider.NewFileFetcher("", o.source)
		base, dir = ff, filepath.Dir(ff.Path("_"))
	default:
		base, dir = provider.NewFileFetcher(o.source, "{lang}.json"), o.source
	}

	if !o.ai {
		return base, dir, nil
	}

	if o.env.OpenAIKey == "" {
		return nil, "", fmt.Errorf("OpenAI API key required (OPENAI_API_KEY env)")
	}
	ai := provider.NewOpenAIFetcher(provider.OpenAIConfig{
		APIKey:    o.env.OpenAIKey,
		Model:     o.env.OpenAIModel,
		BaseURL:   o.env.OpenAIURL,
		Source:    base,
		Catalogue: o.config,
		Context:   o.env.Context,
	})
	// Every attempt, retries included, waits for its turn.
	paced := langsync.NewRateLimitedFetcher(ai, langsync.RateLimitConfig{RequestsPerMinute: 20, Logger: o.logger})
	retry := langsync.DefaultRetryConfig()
	retry.Logger = o.logger
	return provider.Chain{base, langsync.NewRetryableFetcher(paced, retry)}, dir, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// renderResult describes one rendering of the page.
type renderResult struct {
	Content   string
	Language  string
	Direction string
	Bindings  int
	Elapsed   time.Duration
}

// JSONOutput represents the JSON output format.
type JSONOutput struct {
	Content   string `json:"content"`
	Language  string `json:"language"`
	Direction string `json:"direction"`
	Bindings  int    `json:"bindings"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type renderer struct {
	store  *langsync.Store
	page   string
	lang   string
	output string
	stdout io.Writer
	json   bool
	logger zerolog.Logger

	mu sync.Mutex // one render writes the output at a time
}

// render parses the page afresh, switches it to the language and writes
// the result.
func (r *renderer) render(ctx context.Context) (*renderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()

	doc, err := dom.Parse(r.page)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	synchronizer := dom.New(r.store, doc, dom.WithLogger(r.logger))
	if _, err := synchronizer.SetLanguage(ctx, r.lang); err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	content, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("serializing page: %w", err)
	}
	bindings, _ := doc.Bindings()
	dir, _ := doc.Attr("dir")

	result := &renderResult{
		Content:   content,
		Language:  synchronizer.Current().Lang(),
		Direction: dir,
		Bindings:  len(bindings),
		Elapsed:   time.Since(start),
	}
	return result, r.write(result)
}

func (r *renderer) write(result *renderResult) error {
	var out io.Writer = r.stdout
	if r.output != "" {
		f, err := os.Create(r.output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if r.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(JSONOutput{
			Content:   result.Content,
			Language:  result.Language,
			Direction: result.Direction,
			Bindings:  result.Bindings,
			ElapsedMs: result.Elapsed.Milliseconds(),
		})
	}

	_, err := fmt.Fprint(out, result.Content)
	return err
}

// invalidatorFunc adapts a function to provider.Invalidator.
type invalidatorFunc func(ctx context.Context, lang string) error

func (f invalidatorFunc) Clear(ctx context.Context, lang string) error { return f(ctx, lang) }

// watch renders again after every change to a translation file in dir
// until ctx is done.
func (r *renderer) watch(ctx context.Context, dir string) error {
	w, err := provider.NewWatcher(dir, invalidatorFunc(func(ctx context.Context, lang string) error {
		if err := r.store.Clear(ctx, lang); err != nil {
			return err
		}
		_, err := r.render(ctx)
		return err
	}), r.logger)
	if err != nil {
		return err
	}

	r.logger.Info().Str("dir", dir).Msg("watching translations")
	w.Start(ctx)
	<-ctx.Done()
	return w.Close()
}

// runDryRun lists the page's bindings without loading any document.
func runDryRun(input, inputName string, stdout io.Writer, jsonOut bool) error {
	doc, err := dom.Parse(input)
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}
	bindings, titleKey := doc.Bindings()

	if jsonOut {
		type binding struct {
			ID     string            `json:"id"`
			Key    string            `json:"key"`
			Target string            `json:"target"`
			Params map[string]string `json:"params,omitempty"`
		}
		type dryRunOutput struct {
			InputFile string    `json:"input_file"`
			TitleKey  string    `json:"title_key,omitempty"`
			Count     int       `json:"count"`
			Bindings  []binding `json:"bindings"`
		}

		out := dryRunOutput{
			InputFile: inputName,
			TitleKey:  titleKey,
			Count:     len(bindings),
			Bindings:  make([]binding, 0, len(bindings)),
		}
		for _, b := range bindings {
			out.Bindings = append(out.Bindings, binding{
				ID:     b.ID,
				Key:    b.Key,
				Target: b.Target.String(),
				Params: b.Params,
			})
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(stdout, "Dry run: %s\n", inputName)
	if titleKey != "" {
		fmt.Fprintf(stdout, "Title key: %s\n", titleKey)
	}
	fmt.Fprintf(stdout, "Found %d translatable elements:\n\n", len(bindings))

	for i, b := range bindings {
		fmt.Fprintf(stdout, "%3d. %s -> %s\n", i+1, b.Key, b.Target)
		fmt.Fprintf(stdout, "     Element: %s\n", b.ID)
	}

	return nil
}

// runDiff reports how lang's document covers the default language.
func runDiff(ctx context.Context, store *langsync.Store, lang string, stdout io.Writer, jsonOut bool) error {
	defaultLang := store.DefaultLanguage()
	docs, err := store.LoadMany(ctx, []string{defaultLang, lang})
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}
	base, target := docs[defaultLang], docs[lang]
	if target == nil || target.Lang() != lang {
		return fmt.Errorf("no translation document for %q", lang)
	}

	diff := langsync.DiffDocuments(base, target)
	stats := diff.Stats()

	if jsonOut {
		type diffOutput struct {
			Base     string  `json:"base"`
			Language string  `json:"language"`
			Coverage float64 `json:"coverage"`
			Stats    struct {
				Translated   int `json:"translated"`
				Untranslated int `json:"untranslated"`
				Missing      int `json:"missing"`
				Extra        int `json:"extra"`
			} `json:"stats"`
			Missing      []string `json:"missing,omitempty"`
			Untranslated []string `json:"untranslated,omitempty"`
			Extra        []string `json:"extra,omitempty"`
		}

		out := diffOutput{
			Base:         defaultLang,
			Language:     lang,
			Coverage:     diff.Coverage(),
			Missing:      diff.Missing,
			Untranslated: diff.Untranslated,
			Extra:        diff.Extra,
		}
		out.Stats.Translated = stats.Translated
		out.Stats.Untranslated = stats.Untranslated
		out.Stats.Missing = stats.Missing
		out.Stats.Extra = stats.Extra

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(stdout, "Diff: %s vs %s\n\n", lang, defaultLang)
	fmt.Fprintf(stdout, "Summary:\n")
	fmt.Fprintf(stdout, "  Translated:   %d\n", stats.Translated)
	fmt.Fprintf(stdout, "  Untranslated: %d\n", stats.Untranslated)
	fmt.Fprintf(stdout, "  Missing:      %d\n", stats.Missing)
	fmt.Fprintf(stdout, "  Extra:        %d\n", stats.Extra)
	fmt.Fprintf(stdout, "  Coverage:     %.0f%%\n\n", diff.Coverage()*100)

	if !diff.HasGaps() {
		fmt.Fprintf(stdout, "No gaps. Every key is translated.\n")
		return nil
	}

	if len(diff.Missing) > 0 {
		fmt.Fprintf(stdout, "Missing:\n")
		for _, key := range diff.Missing {
			fmt.Fprintf(stdout, "  - %s\n", key)
		}
		fmt.Fprintf(stdout, "\n")
	}

	if len(diff.Untranslated) > 0 {
		fmt.Fprintf(stdout, "Untranslated:\n")
		for _, key := range diff.Untranslated {
			fmt.Fprintf(stdout, "  = %s\n", key)
		}
		fmt.Fprintf(stdout, "\n")
	}

	return nil
}

func runExport(ctx context.Context, storage langsync.Storage, key, path string, stdout io.Writer, quiet bool) error {
	exporter := cache.NewExporter(storage, key)
	metadata := map[string]string{"tool": langsync.Name, "version": version}
	if err := exporter.ExportToFile(ctx, path, metadata); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if !quiet {
		fmt.Fprintf(stdout, "Exported %s to %s\n", key, path)
	}
	return nil
}

func runImport(ctx context.Context, storage langsync.Storage, key, path string, stdout io.Writer, jsonOut bool) error {
	importer := cache.NewImporter(storage, key)
	result, err := importer.ImportFromFile(ctx, path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(stdout, "Imported %d languages into %s: %s\n",
		len(result.Languages), result.Key, strings.Join(result.Languages, ", "))
	return nil
}
