// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/guardkit/guard/internal/classify"
	"github.com/guardkit/guard/pkg/guard"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	Journal struct {
		// Path is a sqlite file path or ":memory:".
		Path string `validate:"required"`
	}
	Probe struct {
		URL      string        `validate:"omitempty,url"`
		Schedule string        `validate:"required"`
		Timeout  time.Duration `validate:"gt=0"`
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
// Failures are VALIDATION guard errors carrying the offending keys in meta.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = os.Getenv("LOG_FILE")
	c.Journal.Path = getenv("JOURNAL_PATH", "data/journal.db")
	c.Probe.URL = os.Getenv("PROBE_URL")
	c.Probe.Schedule = getenv("PROBE_SCHEDULE", "@every 1m")

	timeout, err := time.ParseDuration(getenv("PROBE_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, guard.New("invalid PROBE_TIMEOUT",
			guard.WithCode(guard.CodeValidation),
			guard.WithCause(err),
			guard.WithMetaKV("key", "PROBE_TIMEOUT"),
		)
	}
	c.Probe.Timeout = timeout

	if err := validate.Struct(c); err != nil {
		return Config{}, invalid(err)
	}
	return c, nil
}

func invalid(err error) *guard.Error {
	fields := []string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields = append(fields, fe.Namespace())
		}
	}
	return classify.Classify(fmt.Errorf("invalid configuration: %w", err), guard.WithMetaKV("fields", fields))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
