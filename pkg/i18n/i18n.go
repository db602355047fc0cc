package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Supported locales.
const (
	English = "en"
	Spanish = "es"
)

var (
	ErrMissingTranslator  = errors.New("i18n: translator is not configured")
	ErrMissingTranslation = errors.New("i18n: missing translation")
)

// Translator resolves a message key for a locale. Args are applied with
// fmt.Sprintf semantics.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler decides what text to show when a key cannot be
// resolved. The fallback is the inline text declared alongside the key.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

//go:embed locales/*.yaml
var localeFiles embed.FS

// Bundle is an in-memory Translator keyed by locale then message key.
type Bundle struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
	fallback string
}

// NewBundle returns an empty bundle. Lookups that miss in the requested
// locale retry in fallback.
func NewBundle(fallback string) *Bundle {
	return &Bundle{
		messages: make(map[string]map[string]string),
		fallback: NormalizeLocale(fallback),
	}
}

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
	defaultErr    error
)

// Default returns the built-in English/Spanish bundle.
func Default() (*Bundle, error) {
	defaultOnce.Do(func() {
		defaultBundle = NewBundle(English)
		defaultErr = defaultBundle.LoadFS(localeFiles, "locales")
	})
	return defaultBundle, defaultErr
}

// MustDefault is Default for package initialisation paths.
func MustDefault() *Bundle {
	b, err := Default()
	if err != nil {
		panic(err)
	}
	return b
}

// Add merges messages into locale.
func (b *Bundle) Add(locale string, messages map[string]string) {
	locale = NormalizeLocale(locale)
	b.mu.Lock()
	defer b.mu.Unlock()

	dest, ok := b.messages[locale]
	if !ok {
		dest = make(map[string]string, len(messages))
		b.messages[locale] = dest
	}
	for key, msg := range messages {
		dest[strings.TrimSpace(key)] = msg
	}
}

// LoadFS reads every <locale>.yaml file under dir. Files hold a flat map of
// message keys to text.
func (b *Bundle) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", dir, err)
	}
	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}
		var messages map[string]string
		if err := yaml.Unmarshal(data, &messages); err != nil {
			return fmt.Errorf("i18n: parse %s: %w", entry.Name(), err)
		}
		b.Add(strings.TrimSuffix(entry.Name(), ext), messages)
	}
	return nil
}

// Locales lists the locales with at least one message.
func (b *Bundle) Locales() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	slices.Sort(out)
	return out
}

// Has reports whether locale has messages.
func (b *Bundle) Has(locale string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.messages[NormalizeLocale(locale)]
	return ok
}

// Translate implements Translator.
func (b *Bundle) Translate(locale, key string, args ...any) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key = strings.TrimSpace(key)
	for _, candidate := range []string{NormalizeLocale(locale), b.fallback} {
		msg, ok := b.messages[candidate][key]
		if !ok {
			continue
		}
		if len(args) > 0 {
			return fmt.Sprintf(msg, args...), nil
		}
		return msg, nil
	}
	return "", fmt.Errorf("%w: %s/%s", ErrMissingTranslation, locale, key)
}

// NormalizeLocale lowercases a tag and reduces it to its language subtag, so
// "es-MX" and "ES_us" both become "es".
func NormalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}

// FromAcceptLanguage picks the first supported locale from an
// Accept-Language header value, or fallback when none matches. Quality
// weights are ignored; order wins.
func FromAcceptLanguage(header string, supported []string, fallback string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		locale := NormalizeLocale(tag)
		if locale != "" && slices.Contains(supported, locale) {
			return locale
		}
	}
	return fallback
}

// T resolves key through t, falling back to the inline text and finally to
// the key itself. A nil onMissing uses that default chain. Args format the
// fallback the same way they format a translation.
func T(t Translator, locale, key, fallback string, onMissing MissingTranslationHandler, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	var err error
	if t == nil {
		err = ErrMissingTranslator
	} else {
		var result string
		result, err = t.Translate(locale, key, args...)
		if err == nil && strings.TrimSpace(result) != "" {
			return result
		}
	}

	if onMissing != nil {
		return onMissing(locale, key, fallback, err)
	}
	if strings.TrimSpace(fallback) != "" {
		if len(args) > 0 {
			return fmt.Sprintf(fallback, args...)
		}
		return fallback
	}
	return key
}
