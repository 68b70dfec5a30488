package langsync

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the static language catalogue.
type Config struct {
	DefaultLanguage string     `yaml:"default_language" validate:"required"`
	Supported       []Language `yaml:"supported_languages" validate:"required,min=1,dive"`
	TranslationPath string     `yaml:"translation_path" validate:"required"` // Template with {lang}
	PreferenceKey   string     `yaml:"preference_key"`
	CacheKey        string     `yaml:"cache_key"`
}

const (
	// DefaultTranslationPath is where translation documents live relative to the site root.
	DefaultTranslationPath = "assets/languages/{lang}.json"
	// DefaultPreferenceKey is the storage key holding the chosen language code.
	DefaultPreferenceKey = "teto-egen-language-preference"
	// DefaultCacheKey is the storage key holding the persisted document cache.
	DefaultCacheKey = "teto-egen-language-cache"
)

// DefaultConfig returns the built-in catalogue: the fifteen most spoken
// languages, Korean by default.
func DefaultConfig() Config {
	dot := NumberFormat{Decimal: ".", Thousands: ","}
	comma := NumberFormat{Decimal: ",", Thousands: "."}
	commaSpace := NumberFormat{Decimal: ",", Thousands: " "}
	return Config{
		DefaultLanguage: "ko",
		Supported: []Language{
			{Code: "en", Name: "English", NativeName: "English", Flag: "gb", DateFormat: "MM/DD/YYYY", NumberFormat: dot},
			{Code: "zh", Name: "Chinese", NativeName: "中文", Flag: "cn", DateFormat: "YYYY/MM/DD", NumberFormat: dot},
			{Code: "hi", Name: "Hindi", NativeName: "हिन्दी", Flag: "in", DateFormat: "DD/MM/YYYY", NumberFormat: dot},
			{Code: "es", Name: "Spanish", NativeName: "Español", Flag: "es", DateFormat: "DD/MM/YYYY", NumberFormat: comma},
			{Code: "fr", Name: "French", NativeName: "Français", Flag: "fr", DateFormat: "DD/MM/YYYY", NumberFormat: commaSpace},
			{Code: "ar", Name: "Arabic", NativeName: "العربية", Flag: "sa", RTL: true, DateFormat: "DD/MM/YYYY", NumberFormat: NumberFormat{Decimal: "٫", Thousands: "٬"}},
			{Code: "bn", Name: "Bengali", NativeName: "বাংলা", Flag: "bd", DateFormat: "DD/MM/YYYY", NumberFormat: dot},
			{Code: "ru", Name: "Russian", NativeName: "Русский", Flag: "ru", DateFormat: "DD.MM.YYYY", NumberFormat: commaSpace},
			{Code: "pt", Name: "Portuguese", NativeName: "Português", Flag: "pt", DateFormat: "DD/MM/YYYY", NumberFormat: comma},
			{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia", Flag: "id", DateFormat: "DD/MM/YYYY", NumberFormat: comma},
			{Code: "ur", Name: "Urdu", NativeName: "اردو", Flag: "pk", RTL: true, DateFormat: "DD/MM/YYYY", NumberFormat: dot},
			{Code: "de", Name: "German", NativeName: "Deutsch", Flag: "de", DateFormat: "DD.MM.YYYY", NumberFormat: comma},
			{Code: "ja", Name: "Japanese", NativeName: "日本語", Flag: "jp", DateFormat: "YYYY/MM/DD", NumberFormat: dot},
			{Code: "sw", Name: "Swahili", NativeName: "Kiswahili", Flag: "tz", DateFormat: "DD/MM/YYYY", NumberFormat: dot},
			{Code: "ko", Name: "Korean", NativeName: "한국어", Flag: "kr", DateFormat: "YYYY.MM.DD", NumberFormat: dot},
		},
		TranslationPath: DefaultTranslationPath,
		PreferenceKey:   DefaultPreferenceKey,
		CacheKey:        DefaultCacheKey,
	}
}

// LoadConfig reads a YAML catalogue and validates it. Empty storage keys
// take their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - catalogue path is operator-provided
	if err != nil {
		return Config{}, &ConfigError{Message: "reading catalogue", Cause: err}
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML catalogue.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ConfigError{Message: "decoding YAML", Cause: err}
	}
	if cfg.TranslationPath == "" {
		cfg.TranslationPath = DefaultTranslationPath
	}
	if cfg.PreferenceKey == "" {
		cfg.PreferenceKey = DefaultPreferenceKey
	}
	if cfg.CacheKey == "" {
		cfg.CacheKey = DefaultCacheKey
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the catalogue for structural errors.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &ConfigError{Message: "invalid catalogue", Cause: err}
	}
	if !strings.Contains(c.TranslationPath, "{lang}") {
		return &ConfigError{Message: fmt.Sprintf("translation_path %q has no {lang} placeholder", c.TranslationPath)}
	}
	seen := make(map[string]bool, len(c.Supported))
	for _, lang := range c.Supported {
		code := strings.ToLower(lang.Code)
		if seen[code] {
			return &ConfigError{Message: fmt.Sprintf("duplicate language code %q", lang.Code)}
		}
		seen[code] = true
	}
	if !seen[strings.ToLower(c.DefaultLanguage)] {
		return &ConfigError{Message: fmt.Sprintf("default language %q is not supported", c.DefaultLanguage)}
	}
	return nil
}

// Lookup returns the descriptor for a code, case-insensitively.
func (c Config) Lookup(code string) (Language, bool) {
	if code == "" {
		return Language{}, false
	}
	for _, lang := range c.Supported {
		if strings.EqualFold(lang.Code, code) {
			return lang, true
		}
	}
	return Language{}, false
}

// IsSupported reports whether code is in the catalogue.
func (c Config) IsSupported(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// Default returns the default language, or the first supported language
// when the default is missing from the catalogue.
func (c Config) Default() Language {
	if lang, ok := c.Lookup(c.DefaultLanguage); ok {
		return lang
	}
	if len(c.Supported) > 0 {
		return c.Supported[0]
	}
	return Language{Code: c.DefaultLanguage}
}

// TranslationURL substitutes lang into the translation path template.
func (c Config) TranslationURL(lang string) string {
	return strings.ReplaceAll(c.TranslationPath, "{lang}", lang)
}

// DetectLanguage extracts the lower-cased base code from a browser or
// Accept-Language value: "en-US,en;q=0.9" → "en". Empty input yields "en".
func DetectLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "en"
	}
	first := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
	if len(first) == 0 {
		return "en"
	}
	base := strings.FieldsFunc(first[0], func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(base) == 0 {
		return "en"
	}
	return strings.ToLower(base[0])
}

// Direction returns "rtl" for right-to-left languages, "ltr" otherwise.
func (l Language) Direction() string {
	if l.RTL {
		return "rtl"
	}
	return "ltr"
}

// HTMLLang converts a locale code to HTML lang attribute format (e.g., "pt_BR" → "pt-BR").
func (l Language) HTMLLang() string {
	return strings.ReplaceAll(l.Code, "_", "-")
}

// FormatDate renders t with the language's YYYY/MM/DD pattern.
func (l Language) FormatDate(t time.Time) string {
	format := l.DateFormat
	if format == "" {
		format = "YYYY/MM/DD"
	}
	r := strings.NewReplacer(
		"YYYY", strconv.Itoa(t.Year()),
		"MM", fmt.Sprintf("%02d", int(t.Month())),
		"DD", fmt.Sprintf("%02d", t.Day()),
	)
	return r.Replace(format)
}

// FormatNumber renders n with the given number of decimals and the
// language's separators.
func (l Language) FormatNumber(n float64, decimals int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return ""
	}
	if decimals < 0 {
		decimals = 0
	}
	decimal := l.NumberFormat.Decimal
	if decimal == "" {
		decimal = "."
	}
	thousands := l.NumberFormat.Thousands

	s := strconv.FormatFloat(n, 'f', decimals, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousands)
		}
		b.WriteRune(r)
	}

	out := sign + b.String()
	if fracPart != "" {
		out += decimal + fracPart
	}
	return out
}
