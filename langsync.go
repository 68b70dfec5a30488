// Package langsync loads, caches and applies translation documents for a
// multilingual HTML front end.
//
// A Store resolves language codes to Documents. Documents are cached in
// memory with a bounded size and a time-to-live, concurrent loads of the
// same language share one fetch, failed loads fall back to the default
// language, and the cache is persisted to durable Storage between runs.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/langsync"
//	    "github.com/ZaguanLabs/langsync/cache"
//	    "github.com/ZaguanLabs/langsync/dom"
//	    "github.com/ZaguanLabs/langsync/provider"
//	)
//
//	func main() {
//	    cfg := langsync.DefaultConfig()
//	    fetcher := provider.NewHTTPFetcher(provider.HTTPConfig{
//	        BaseURL:  "https://example.com/",
//	        Template: cfg.TranslationPath,
//	    })
//
//	    store := langsync.NewStore(cfg, fetcher,
//	        langsync.WithStorage(cache.NewFileStorage(".cache", 5<<20)),
//	    )
//	    defer store.Close(context.Background())
//
//	    doc, _ := dom.Parse(page)
//	    sync := dom.New(store, doc)
//	    if _, err := sync.SetLanguage(context.Background(), "en"); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(doc.Render())
//	}
package langsync
