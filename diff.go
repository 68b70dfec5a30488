package langsync

import "sort"

// DiffResult describes how a translation covers a base document.
type DiffResult struct {
	// Missing contains keys of the base document absent from the target.
	Missing []string

	// Extra contains keys of the target that the base document does not have.
	Extra []string

	// Untranslated contains keys whose target text equals the base text.
	Untranslated []string

	// Translated contains keys with a distinct target text.
	Translated []string
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Missing      int
	Extra        int
	Untranslated int
	Translated   int
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Missing:      len(d.Missing),
		Extra:        len(d.Extra),
		Untranslated: len(d.Untranslated),
		Translated:   len(d.Translated),
	}
}

// HasGaps returns true if any base key is missing or untranslated.
func (d *DiffResult) HasGaps() bool {
	return len(d.Missing) > 0 || len(d.Untranslated) > 0
}

// Coverage returns the fraction of base keys with a distinct translation.
// An empty base counts as fully covered.
func (d *DiffResult) Coverage() float64 {
	total := len(d.Missing) + len(d.Untranslated) + len(d.Translated)
	if total == 0 {
		return 1
	}
	return float64(len(d.Translated)) / float64(total)
}

// DiffDocuments compares target against base key by key. This is how a
// new language file is checked against the default language before release.
func DiffDocuments(base, target *Document) *DiffResult {
	result := &DiffResult{}

	baseLeaves := base.Flatten()
	targetLeaves := target.Flatten()

	for key, baseText := range baseLeaves {
		targetText, ok := targetLeaves[key]
		switch {
		case !ok:
			result.Missing = append(result.Missing, key)
		case targetText == baseText:
			result.Untranslated = append(result.Untranslated, key)
		default:
			result.Translated = append(result.Translated, key)
		}
	}

	for key := range targetLeaves {
		if _, ok := baseLeaves[key]; !ok {
			result.Extra = append(result.Extra, key)
		}
	}

	sort.Strings(result.Missing)
	sort.Strings(result.Extra)
	sort.Strings(result.Untranslated)
	sort.Strings(result.Translated)
	return result
}
