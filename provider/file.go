package provider

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZaguanLabs/langsync"
)

// FileFetcher reads translation documents from the local filesystem.
type FileFetcher struct {
	root     string
	template string
}

// NewFileFetcher creates a fetcher reading template (with {lang}) below
// root. An empty root uses the template as is.
func NewFileFetcher(root, template string) *FileFetcher {
	if template == "" {
		template = langsync.DefaultTranslationPath
	}
	return &FileFetcher{root: root, template: template}
}

// Path returns the file the document for lang is read from.
func (f *FileFetcher) Path(lang string) string {
	p := filepath.FromSlash(expand(f.template, lang))
	if f.root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(f.root, p)
}

// Fetch implements langsync.Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, lang string) (*langsync.Document, error) {
	path := f.Path(lang)
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the configured template
	if err != nil {
		msg := "reading translation file"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "translation file not found"
		}
		return nil, &langsync.NetworkFetchError{Lang: lang, URL: path, Message: msg, Cause: err}
	}

	doc, err := langsync.ParseDocument(lang, data)
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, URL: path, Message: "malformed translation document", Cause: err}
	}
	return doc, nil
}

// Verify FileFetcher implements Fetcher
var _ Fetcher = (*FileFetcher)(nil)
