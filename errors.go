package langsync

import "fmt"

// NetworkFetchError indicates a translation document could not be fetched
// (transport failure, non-2xx status, malformed JSON). It is recoverable:
// the store falls back to the default language.
type NetworkFetchError struct {
	Lang       string
	URL        string
	StatusCode int // HTTP status, 0 when the request never completed
	Message    string
	Cause      error
	Retryable  bool // Whether a retry may succeed (5xx, 429, transport errors)
}

func (e *NetworkFetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.Lang, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *NetworkFetchError) Unwrap() error {
	return e.Cause
}

// TranslationLoadError is returned by Store.Load when the default language
// itself cannot be loaded and no fallback remains.
type TranslationLoadError struct {
	Lang  string
	Cause error
}

func (e *TranslationLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("translations for %q unavailable: %v", e.Lang, e.Cause)
	}
	return fmt.Sprintf("translations for %q unavailable", e.Lang)
}

func (e *TranslationLoadError) Unwrap() error {
	return e.Cause
}

// StorageQuotaError indicates durable storage rejected a write because it is full.
type StorageQuotaError struct {
	Key   string
	Size  int // Size of the rejected payload in bytes
	Limit int // Storage limit in bytes, 0 if unknown
	Cause error
}

func (e *StorageQuotaError) Error() string {
	msg := fmt.Sprintf("storage quota exceeded writing %q (%d bytes", e.Key, e.Size)
	if e.Limit > 0 {
		msg += fmt.Sprintf(", limit %d", e.Limit)
	}
	msg += ")"
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *StorageQuotaError) Unwrap() error {
	return e.Cause
}

// StorageError indicates any other durable storage failure.
type StorageError struct {
	Message string
	Cause   error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("storage error: %s", e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// KeyNotFoundWarning reports a translation key that did not resolve to a
// string. It is never fatal; callers render the key itself.
type KeyNotFoundWarning struct {
	Lang string
	Key  string
	// NotString is set when the path exists but names a subtree or a non-string leaf.
	NotString bool
}

func (e *KeyNotFoundWarning) Error() string {
	if e.NotString {
		return fmt.Sprintf("translation key does not resolve to a string: %s (%s)", e.Key, e.Lang)
	}
	return fmt.Sprintf("translation key not found: %s (%s)", e.Key, e.Lang)
}

// ConfigError indicates an invalid language catalogue.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
