// Package provider contains the sources translation documents are fetched
// from: HTTP, the local filesystem and OpenAI, plus combinators and a
// directory watcher that invalidates cached documents when files change.
package provider

import (
	"strings"

	"github.com/ZaguanLabs/langsync"
)

// Fetcher is an alias to the main package interface for convenience.
type Fetcher = langsync.Fetcher

// placeholder is substituted with the language code in path templates.
const placeholder = "{lang}"

// expand fills the language placeholder of a path template.
func expand(template, lang string) string {
	return strings.ReplaceAll(template, placeholder, lang)
}
