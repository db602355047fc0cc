// Package config loads service settings from a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-intake/internal/storage"
	"github.com/goliatone/go-intake/pkg/i18n"
)

// Config holds every setting the service and CLI read.
type Config struct {
	Port          int    `env:"PORT" validate:"min=1,max=65535"`
	DatabaseURL   string `env:"DATABASE_URL"`
	CatalogPath   string `env:"CATALOG_PATH"`
	DefaultLocale string `env:"DEFAULT_LOCALE" validate:"oneof=en es"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" validate:"omitempty,url"`

	StorageType      string `env:"STORAGE_TYPE" validate:"oneof=local s3 none"`
	StorageLocalPath string `env:"STORAGE_LOCAL_PATH" validate:"required_if=StorageType local"`
	S3Bucket         string `env:"AWS_S3_BUCKET" validate:"required_if=StorageType s3"`
	S3Region         string `env:"AWS_REGION"`
	AWSAccessKey     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey     string `env:"AWS_SECRET_ACCESS_KEY"`

	LogLevel  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=text json"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	return Config{
		Port:             8080,
		DefaultLocale:    i18n.English,
		StorageType:      string(storage.TypeLocal),
		StorageLocalPath: "./storage/requests",
		S3Region:         "us-east-1",
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads the optional .env files, then the environment, and validates
// the result. Missing .env files are ignored; variables already set in the
// environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return FromEnvironment(env.ToMap(os.Environ()))
}

// FromEnvironment builds a Config from environ, applying defaults for unset
// or blank keys.
func FromEnvironment(environ map[string]string) (Config, error) {
	set := make(map[string]string, len(environ))
	for key, value := range environ {
		if value = strings.TrimSpace(value); value != "" {
			set[key] = value
		}
	}

	cfg := Defaults()
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: set}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.DefaultLocale = i18n.NormalizeLocale(cfg.DefaultLocale)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.StorageType = strings.ToLower(cfg.StorageType)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("env")
		})
	})
	return validate
}

// Validate checks the struct tags and returns every violation keyed by the
// environment variable name.
func (c Config) Validate() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	sort.Strings(problems)
	return fmt.Errorf("config: invalid settings: %s", strings.Join(problems, "; "))
}

// Storage maps the storage settings onto the archive backend config.
func (c Config) Storage() storage.Config {
	return storage.Config{
		Type:         storage.Type(c.StorageType),
		LocalPath:    c.StorageLocalPath,
		S3Bucket:     c.S3Bucket,
		S3Region:     c.S3Region,
		AWSAccessKey: c.AWSAccessKey,
		AWSSecretKey: c.AWSSecretKey,
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
