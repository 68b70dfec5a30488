package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// env is the part of the configuration that comes from the environment.
// Flags override the LANGSYNC_ values.
type env struct {
	Environment  string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"warn"`
	OpenAIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIURL    string `envconfig:"OPENAI_BASE_URL"`
	Translations string `envconfig:"LANGSYNC_TRANSLATIONS"`
	CacheDir     string `envconfig:"LANGSYNC_CACHE_DIR"`
	CacheQuota   int64  `envconfig:"LANGSYNC_CACHE_QUOTA" default:"5242880"`
	RedisURL     string `envconfig:"LANGSYNC_REDIS_URL"`
	Context      string `envconfig:"LANGSYNC_CONTEXT" default:"a personality quiz website"`
}

func loadEnv() (env, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return env{}, fmt.Errorf("reading environment: %w", err)
	}
	return e, nil
}

// newLogger writes to w, with console output for local runs and JSON
// lines elsewhere.
func newLogger(w io.Writer, environment, level string) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		Level(parsedLevel).
		With().
		Timestamp().
		Str("service", "langsync").
		Logger(), nil
}
