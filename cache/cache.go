// Package cache provides the resolved-string cache and the durable storage
// backends used to persist translation caches.
package cache

// TranslationCache memoizes resolved translation strings.
type TranslationCache interface {
	// Get retrieves a cached string. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a string in the cache.
	Set(key string, value string) error

	// Clear removes every entry.
	Clear()

	// Len returns the number of entries.
	Len() int
}
