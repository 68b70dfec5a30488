package langsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the cache entry schema version. Persisted entries with
// any other version are discarded on restore.
const SchemaVersion = 2

// NumberFormat holds the separators used to format numbers for a language.
type NumberFormat struct {
	Decimal   string `yaml:"decimal" json:"decimal"`
	Thousands string `yaml:"thousands" json:"thousands"`
}

// Language describes one supported language. Descriptors are loaded once
// from static configuration and never mutated.
type Language struct {
	Code         string       `yaml:"code" json:"code" validate:"required"`
	Name         string       `yaml:"name" json:"name" validate:"required"`
	NativeName   string       `yaml:"native_name" json:"nativeName"`
	Flag         string       `yaml:"flag" json:"flag"`
	RTL          bool         `yaml:"rtl" json:"rtl"`
	DateFormat   string       `yaml:"date_format" json:"dateFormat"`
	NumberFormat NumberFormat `yaml:"number_format" json:"numberFormat"`
}

// Document is the translation tree for one language. Leaves are strings,
// addressed by dot-separated paths such as "app.title".
type Document struct {
	lang string
	tree map[string]any
}

// NewDocument wraps a decoded JSON tree.
func NewDocument(lang string, tree map[string]any) *Document {
	if tree == nil {
		tree = map[string]any{}
	}
	return &Document{lang: lang, tree: tree}
}

// ParseDocument decodes a JSON object into a Document.
func ParseDocument(lang string, data []byte) (*Document, error) {
	doc := &Document{lang: lang}
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return doc, nil
}

// DocumentFromFlat builds a Document from dot-path keys.
func DocumentFromFlat(lang string, flat map[string]string) *Document {
	tree := map[string]any{}
	for path, value := range flat {
		parts := strings.Split(path, ".")
		node := tree
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return NewDocument(lang, tree)
}

// Lang returns the language code the document belongs to.
func (d *Document) Lang() string {
	if d == nil {
		return ""
	}
	return d.lang
}

// withLang returns d bound to lang, copying only when the code differs.
func (d *Document) withLang(lang string) *Document {
	if d.lang == lang {
		return d
	}
	return &Document{lang: lang, tree: d.tree}
}

// Lookup returns the string leaf at path. Missing paths, subtrees and
// non-string leaves all report false.
func (d *Document) Lookup(path string) (string, bool) {
	v, found := d.lookup(path)
	if !found {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d *Document) lookup(path string) (any, bool) {
	if d == nil || path == "" {
		return nil, false
	}
	var node any = d.tree
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Flatten returns every string leaf keyed by its dot path.
func (d *Document) Flatten() map[string]string {
	flat := make(map[string]string)
	if d == nil {
		return flat
	}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			switch val := v.(type) {
			case string:
				flat[path] = val
			case map[string]any:
				walk(path, val)
			}
		}
	}
	walk("", d.tree)
	return flat
}

// Keys returns the sorted dot paths of all string leaves.
func (d *Document) Keys() []string {
	flat := d.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of string leaves.
func (d *Document) Len() int {
	return len(d.Flatten())
}

// MarshalJSON encodes the bare tree.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.tree == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.tree)
}

// UnmarshalJSON decodes a JSON object. Anything else is rejected.
func (d *Document) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("translation document must be a JSON object")
	}
	var tree map[string]any
	if err := json.Unmarshal(trimmed, &tree); err != nil {
		return err
	}
	d.tree = tree
	return nil
}

// EntryMetadata is the freshness and usage data attached to a cached document.
type EntryMetadata struct {
	Timestamp    time.Time // Insertion time; TTL is measured from here
	LastAccessed time.Time
	AccessCount  int
	Version      int
}

// Fetcher loads a translation document from its source.
type Fetcher interface {
	Fetch(ctx context.Context, lang string) (*Document, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, lang string) (*Document, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, lang string) (*Document, error) {
	return f(ctx, lang)
}

// Storage is a durable key/value store for persisted cache snapshots and
// the language preference. Set returns *StorageQuotaError when full.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
