package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ZaguanLabs/langsync"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// HTTPConfig holds configuration for the HTTP fetcher.
type HTTPConfig struct {
	BaseURL   string        // Base the template is resolved against (optional for absolute templates)
	Template  string        // Path template with {lang} (default: langsync.DefaultTranslationPath)
	Timeout   time.Duration // Per-request timeout (default: 10s)
	RetryMax  int           // Transport-level retries (default: 2, negative disables)
	UserAgent string        // User-Agent header (default: langsync.UserAgent())
	Logger    zerolog.Logger
}

// HTTPFetcher fetches translation documents with GET requests.
type HTTPFetcher struct {
	client    *retryablehttp.Client
	base      *url.URL
	template  string
	userAgent string
}

// NewHTTPFetcher creates a fetcher. An unparsable BaseURL is reported on
// the first Fetch.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	client := retryablehttp.NewClient()

	client.RetryMax = 2
	if cfg.RetryMax > 0 {
		client.RetryMax = cfg.RetryMax
	} else if cfg.RetryMax < 0 {
		client.RetryMax = 0
	}
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient.Timeout = timeout

	// Hand the final response back so the status code can be reported.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = leveledLogger{cfg.Logger}

	template := cfg.Template
	if template == "" {
		template = langsync.DefaultTranslationPath
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = langsync.UserAgent()
	}

	f := &HTTPFetcher{
		client:    client,
		template:  template,
		userAgent: userAgent,
	}
	if cfg.BaseURL != "" {
		f.base, _ = url.Parse(cfg.BaseURL)
	}
	return f
}

// URL returns the address the document for lang is fetched from.
func (f *HTTPFetcher) URL(lang string) (string, error) {
	ref, err := url.Parse(expand(f.template, lang))
	if err != nil {
		return "", err
	}
	if f.base == nil {
		if !ref.IsAbs() {
			return "", fmt.Errorf("relative template %q needs a base URL", f.template)
		}
		return ref.String(), nil
	}
	return f.base.ResolveReference(ref).String(), nil
}

// Fetch implements langsync.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, lang string) (*langsync.Document, error) {
	target, err := f.URL(lang)
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, Message: "invalid translation URL", Cause: err}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, URL: target, Message: "building request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &langsync.NetworkFetchError{
			Lang:      lang,
			URL:       target,
			Message:   "request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &langsync.NetworkFetchError{
			Lang:       lang,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response",
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, URL: target, Message: "reading body", Cause: err, Retryable: true}
	}

	doc, err := langsync.ParseDocument(lang, body)
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, URL: target, Message: "malformed translation document", Cause: err}
	}
	return doc, nil
}

// leveledLogger routes retryablehttp logging into zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Fields(keysAndValues).Msg(msg)
}

// Verify HTTPFetcher implements Fetcher
var _ Fetcher = (*HTTPFetcher)(nil)
