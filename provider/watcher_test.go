package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingInvalidator struct {
	cleared chan string
}

func (r *recordingInvalidator) Clear(ctx context.Context, lang string) error {
	r.cleared <- lang
	return nil
}

func TestLanguageOf(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/x/assets/languages/fr.json", "fr", true},
		{"ko.json", "ko", true},
		{"/x/readme.md", "", false},
		{"/x/.fr.json.swp", "", false},
		{"/x/.json", "", false},
	}
	for _, tt := range tests {
		got, ok := languageOf(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("languageOf(%q) = %q, %v", tt.path, got, ok)
		}
	}
}

func TestWatcher_ClearsChangedLanguage(t *testing.T) {
	dir := t.TempDir()
	inv := &recordingInvalidator{cleared: make(chan string, 4)}

	w, err := NewWatcher(dir, inv, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(filepath.Join(dir, "fr.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case lang := <-inv.cleared:
		if lang != "fr" {
			t.Errorf("cleared %q, want fr", lang)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not clear the changed language")
	}
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), &recordingInvalidator{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), &recordingInvalidator{}, zerolog.Nop()); err == nil {
		t.Error("expected error for missing directory")
	}
}
