package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZaguanLabs/langsync"
	"github.com/sashabaranov/go-openai"
)

// OpenAIFetcher builds a translation document for a language that has no
// file yet by machine-translating the source language's document.
type OpenAIFetcher struct {
	client      *openai.Client
	model       string
	temperature float32
	source      Fetcher
	sourceLang  string
	catalogue   langsync.Config
	context     string
}

// OpenAIConfig holds configuration for the OpenAI fetcher.
type OpenAIConfig struct {
	APIKey      string          // OpenAI API key
	Model       string          // Model to use (default: "gpt-4o-mini")
	Temperature float32         // Temperature for generation (default: 0.3)
	BaseURL     string          // Custom base URL (optional)
	Source      Fetcher         // Where the source document comes from
	SourceLang  string          // Source language (default: catalogue default)
	Catalogue   langsync.Config // Used for language names in the prompt
	Context     string          // What the site is, e.g. "a personality quiz"
}

// NewOpenAIFetcher creates a new OpenAI fetcher.
func NewOpenAIFetcher(cfg OpenAIConfig) *OpenAIFetcher {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	sourceLang := cfg.SourceLang
	if sourceLang == "" {
		sourceLang = cfg.Catalogue.DefaultLanguage
	}

	return &OpenAIFetcher{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		source:      cfg.Source,
		sourceLang:  sourceLang,
		catalogue:   cfg.Catalogue,
		context:     cfg.Context,
	}
}

// Fetch implements langsync.Fetcher. The source document is fetched, its
// string leaves translated in one request, and the result rebuilt into a
// tree with the same keys.
func (p *OpenAIFetcher) Fetch(ctx context.Context, lang string) (*langsync.Document, error) {
	if p.source == nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, Message: "no source fetcher configured"}
	}
	src, err := p.source.Fetch(ctx, p.sourceLang)
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, Message: "fetching source document", Cause: err}
	}
	if lang == p.sourceLang {
		return src, nil
	}

	keys := src.Keys()
	if len(keys) == 0 {
		return langsync.NewDocument(lang, nil), nil
	}
	flat := src.Flatten()
	texts := make([]string, len(keys))
	for i, k := range keys {
		texts[i] = flat[k]
	}

	translations, err := p.translate(ctx, lang, texts)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for i, k := range keys {
		out[k] = translations[i]
	}
	return langsync.DocumentFromFlat(lang, out), nil
}

func (p *OpenAIFetcher) translate(ctx context.Context, lang string, texts []string) ([]string, error) {
	data, _ := json.Marshal(texts)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(lang)},
			{Role: openai.ChatMessageRoleUser, Content: string(data)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &langsync.NetworkFetchError{
			Lang:      lang,
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &langsync.NetworkFetchError{
			Lang:      lang,
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	translations, err := parseResponse(resp.Choices[0].Message.Content, len(texts))
	if err != nil {
		return nil, &langsync.NetworkFetchError{Lang: lang, Message: "invalid OpenAI response", Cause: err}
	}
	return translations, nil
}

func (p *OpenAIFetcher) languageName(code string) string {
	if l, ok := p.catalogue.Lookup(code); ok {
		return l.Name
	}
	return code
}

func (p *OpenAIFetcher) buildSystemPrompt(lang string) string {
	targetName := p.languageName(lang)
	sourceName := p.languageName(p.sourceLang)

	contextText := "The content is the user interface of a website."
	if p.context != "" {
		contextText = fmt.Sprintf("The content is the user interface of %s. Adapt the tone to be appropriate for this context.", p.context)
	}

	prompt := fmt.Sprintf(`# Role
You are an expert native translator. You translate user interface strings from %s to %s with the fluency of a native speaker.

# Context
%s

# Task
Translate the provided strings into idiomatic %s.

# Style Guide
- **Natural Flow**: Avoid literal translations. Keep labels short, the way a native interface would phrase them.
- **Placeholders**: Do NOT translate placeholders in braces such as {name} or {count}. Keep them exactly as written.
- **HTML Safety**: Do NOT translate HTML tags, URLs or email addresses.
- **Formatting**: Preserve leading and trailing whitespace and line breaks.`, sourceName, targetName, contextText, targetName)

	if l, ok := p.catalogue.Lookup(lang); ok && l.RTL {
		prompt += "\n- **Direction**: The target language is written right to left. Do not add direction marks."
	}

	prompt += `

# Format
Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
- Do NOT wrap in Markdown code blocks.`

	return prompt
}

// errCountMismatch reports a response whose length differs from the request.
type errCountMismatch struct {
	expected, got int
}

func (e *errCountMismatch) Error() string {
	return fmt.Sprintf("expected %d translations, got %d", e.expected, e.got)
}

func parseResponse(content string, expectedCount int) ([]string, error) {
	// Try parsing as object first
	var objResult map[string]interface{}
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if translations, ok := objResult["translations"]; ok {
			if arr, ok := translations.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}

		// Fallback: find first array value
		for _, v := range objResult {
			if arr, ok := v.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	// Try parsing as direct array
	var arrResult []interface{}
	if err := json.Unmarshal([]byte(content), &arrResult); err == nil {
		return toStringSlice(arrResult, expectedCount)
	}

	return nil, errors.New("invalid response format from OpenAI")
}

func toStringSlice(arr []interface{}, expectedCount int) ([]string, error) {
	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}

	if len(result) != expectedCount {
		return nil, &errCountMismatch{expected: expectedCount, got: len(result)}
	}

	return result, nil
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIFetcher implements Fetcher
var _ Fetcher = (*OpenAIFetcher)(nil)
