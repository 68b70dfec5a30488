package langsync

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LoadMany loads several languages concurrently. Duplicate codes are
// loaded once and concurrent loads still share fetches with any other
// caller. The result maps each requested code to the document it resolved
// to, which is the default language's document after a fallback.
func (s *Store) LoadMany(ctx context.Context, langs []string) (map[string]*Document, error) {
	unique := make([]string, 0, len(langs))
	seen := make(map[string]bool, len(langs))
	for _, lang := range langs {
		if lang != "" && !seen[lang] {
			seen[lang] = true
			unique = append(unique, lang)
		}
	}

	var mu sync.Mutex
	docs := make(map[string]*Document, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range unique {
		g.Go(func() error {
			doc, err := s.Load(gctx, lang)
			if err != nil {
				return err
			}
			mu.Lock()
			docs[lang] = doc
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return docs, err
	}
	return docs, nil
}
