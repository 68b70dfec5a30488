package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/ZaguanLabs/langsync"
)

// ExportFormat is the JSON envelope written by Exporter.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Key        string            `json:"key"`
	Languages  []string          `json:"languages"`
	Snapshot   json.RawMessage   `json:"snapshot"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Exporter copies a persisted cache snapshot out of a Storage.
type Exporter struct {
	storage langsync.Storage
	key     string
}

// NewExporter creates an exporter for the snapshot stored under key.
func NewExporter(storage langsync.Storage, key string) *Exporter {
	return &Exporter{storage: storage, key: key}
}

// Export writes the snapshot to w in JSON format. A missing snapshot
// exports as an empty object.
func (e *Exporter) Export(ctx context.Context, w io.Writer, metadata map[string]string) error {
	raw, ok, err := e.storage.Get(ctx, e.key)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	if !ok {
		raw = "{}"
	}

	langs, err := snapshotLanguages([]byte(raw))
	if err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	export := ExportFormat{
		Version:    "1.0",
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Key:        e.key,
		Languages:  langs,
		Snapshot:   json.RawMessage(raw),
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// ExportToFile exports the snapshot to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(ctx context.Context, path string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, metadata)
}

// Importer writes an exported snapshot back into a Storage.
type Importer struct {
	storage langsync.Storage
	key     string
}

// NewImporter creates an importer targeting key. An empty key uses the
// key recorded in the export.
func NewImporter(storage langsync.Storage, key string) *Importer {
	return &Importer{storage: storage, key: key}
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version   string
	Key       string
	Languages []string
	Metadata  map[string]string
}

// Import reads an export from r and stores its snapshot. The snapshot is
// restored by the next Store.Restore, which still drops expired entries.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	langs, err := snapshotLanguages(export.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	key := i.key
	if key == "" {
		key = export.Key
	}
	if key == "" {
		return nil, fmt.Errorf("export has no storage key")
	}

	if err := i.storage.Set(ctx, key, string(export.Snapshot)); err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}

	return &ImportResult{
		Version:   export.Version,
		Key:       key,
		Languages: langs,
		Metadata:  export.Metadata,
	}, nil
}

// ImportFromFile imports a snapshot from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}

// snapshotLanguages lists the language codes in a persisted snapshot.
func snapshotLanguages(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	langs := make([]string, 0, len(entries))
	for lang := range entries {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, nil
}
