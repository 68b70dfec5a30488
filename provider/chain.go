package provider

import (
	"context"
	"errors"

	"github.com/ZaguanLabs/langsync"
)

// Chain tries each fetcher in order and returns the first document found.
type Chain []Fetcher

// Fetch implements langsync.Fetcher. When every fetcher fails the errors
// are joined.
func (c Chain) Fetch(ctx context.Context, lang string) (*langsync.Document, error) {
	if len(c) == 0 {
		return nil, &langsync.NetworkFetchError{Lang: lang, Message: "no fetchers configured"}
	}

	var errs []error
	for _, f := range c {
		doc, err := f.Fetch(ctx, lang)
		if err == nil && doc != nil {
			return doc, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &langsync.NetworkFetchError{
		Lang:    lang,
		Message: "all sources failed",
		Cause:   errors.Join(errs...),
	}
}

// Verify Chain implements Fetcher
var _ Fetcher = Chain(nil)
