package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaguanLabs/langsync"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"app":{"title":"Teto-Egen Test"},"params":{"welcome":"Welcome, {name}!"}}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPConfig{BaseURL: srv.URL + "/", RetryMax: -1})
	doc, err := f.Fetch(context.Background(), "en")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if gotPath != "/assets/languages/en.json" {
		t.Errorf("requested %q", gotPath)
	}
	if !strings.HasPrefix(gotUA, "langsync/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if doc.Lang() != "en" {
		t.Errorf("Lang = %q", doc.Lang())
	}
	if title, _ := doc.Lookup("app.title"); title != "Teto-Egen Test" {
		t.Errorf("app.title = %q", title)
	}
}

func TestHTTPFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewHTTPFetcher(HTTPConfig{BaseURL: srv.URL, RetryMax: -1})
	_, err := f.Fetch(context.Background(), "xx")

	var fetchErr *langsync.NetworkFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected NetworkFetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", fetchErr.StatusCode)
	}
	if fetchErr.Retryable {
		t.Error("404 should not be retryable")
	}
}

func TestHTTPFetcher_ServerErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPConfig{BaseURL: srv.URL, RetryMax: -1})
	_, err := f.Fetch(context.Background(), "fr")

	var fetchErr *langsync.NetworkFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected NetworkFetchError, got %v", err)
	}
	if !fetchErr.Retryable {
		t.Error("503 should be retryable")
	}
	if !langsync.IsRetryable(err) {
		t.Error("IsRetryable should agree")
	}
}

func TestHTTPFetcher_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["not", "an", "object"]`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPConfig{BaseURL: srv.URL, RetryMax: -1})
	_, err := f.Fetch(context.Background(), "de")
	if err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Errorf("expected malformed document error, got %v", err)
	}
}

func TestHTTPFetcher_URL(t *testing.T) {
	f := NewHTTPFetcher(HTTPConfig{BaseURL: "https://example.com/quiz/", Template: "i18n/{lang}.json"})
	got, err := f.URL("ja")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/quiz/i18n/ja.json" {
		t.Errorf("URL = %q", got)
	}

	abs := NewHTTPFetcher(HTTPConfig{Template: "https://cdn.example.com/{lang}.json"})
	if got, _ := abs.URL("ko"); got != "https://cdn.example.com/ko.json" {
		t.Errorf("absolute URL = %q", got)
	}

	if _, err := NewHTTPFetcher(HTTPConfig{}).URL("ko"); err == nil {
		t.Error("relative template without base should fail")
	}
}

func TestFileFetcher_Fetch(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "assets", "languages")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "ko.json"), []byte(`{"app":{"title":"테토-에겐 테스트"}}`), 0o644)

	f := NewFileFetcher(root, "")
	doc, err := f.Fetch(context.Background(), "ko")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if title, _ := doc.Lookup("app.title"); title != "테토-에겐 테스트" {
		t.Errorf("app.title = %q", title)
	}

	_, err = f.Fetch(context.Background(), "xx")
	var fetchErr *langsync.NetworkFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected NetworkFetchError, got %v", err)
	}
	if !strings.Contains(fetchErr.Message, "not found") {
		t.Errorf("Message = %q", fetchErr.Message)
	}
}

func TestChain_Fetch(t *testing.T) {
	first := NewMockFetcher(map[string]map[string]string{"ko": {"a": "가"}})
	second := NewMockFetcher(map[string]map[string]string{"en": {"a": "A"}})
	chain := Chain{first, second}

	doc, err := chain.Fetch(context.Background(), "en")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if v, _ := doc.Lookup("a"); v != "A" {
		t.Errorf("a = %q", v)
	}
	if first.Calls("en") != 1 || second.Calls("en") != 1 {
		t.Error("both fetchers should have been tried")
	}

	if _, err := chain.Fetch(context.Background(), "xx"); err == nil {
		t.Error("expected error when every source fails")
	}
	if _, err := (Chain{}).Fetch(context.Background(), "en"); err == nil {
		t.Error("empty chain should fail")
	}
}
