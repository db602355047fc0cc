package tui

import (
	"io"

	"github.com/goliatone/go-intake/pkg/i18n"
)

// OutputFormat controls how a compiled payload is printed.
type OutputFormat string

const (
	// OutputFormatJSON emits indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one key=value line per answer.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Valid reports whether Encode supports f. The empty format means JSON.
func (f OutputFormat) Valid() bool {
	switch f {
	case "", OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
		return true
	default:
		return false
	}
}

// Theme captures optional message prefixes.
type Theme struct {
	RequiredSuffix string
	InfoPrefix     string
	ErrorPrefix    string
}

// Option configures the Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithOutput sets where the default driver prints informational messages.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithTranslator resolves prompt labels and status messages.
func WithTranslator(t i18n.Translator) Option {
	return func(r *Runner) {
		r.translator = t
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithMaxAttempts bounds how many times a rejected form is re-prompted
// before Run gives up. Zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		r.maxAttempts = n
	}
}
