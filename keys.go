package langsync

import (
	"encoding/json"
	"sort"
	"strings"
)

// ResolvedKey builds the memoization key for a resolved translation.
// Parameters are part of the key; JSON map encoding keeps it stable.
func ResolvedKey(lang, key string, params map[string]string) string {
	if len(params) == 0 {
		return lang + ":" + key
	}
	data, _ := json.Marshal(params)
	return lang + ":" + key + ":" + string(data)
}

// Substitute replaces {name} placeholders with values from params.
func Substitute(text string, params map[string]string) string {
	if len(params) == 0 || !strings.Contains(text, "{") {
		return text
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		text = strings.ReplaceAll(text, "{"+name+"}", params[name])
	}
	return text
}

// Resolve looks key up in doc and substitutes params. When the key does
// not resolve to a string the key itself is returned together with a
// *KeyNotFoundWarning.
func Resolve(doc *Document, key string, params map[string]string) (string, error) {
	if key == "" {
		return "", nil
	}
	v, found := doc.lookup(key)
	if !found {
		return key, &KeyNotFoundWarning{Lang: doc.Lang(), Key: key}
	}
	s, ok := v.(string)
	if !ok {
		return key, &KeyNotFoundWarning{Lang: doc.Lang(), Key: key, NotString: true}
	}
	return Substitute(s, params), nil
}
