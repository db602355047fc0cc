package validation

import (
	"strings"
	"time"

	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/intake"
)

// Code identifies the rule an answer failed.
type Code string

const (
	CodeRequired      Code = "required"
	CodeDate          Code = "date"
	CodeChoice        Code = "choice"
	CodeUnknownOption Code = "unknownOption"
	CodeChoices       Code = "choices"
	CodeKind          Code = "kind"
)

var fallbackMessages = map[Code]string{
	CodeRequired:      "This field is required.",
	CodeDate:          "Enter a valid date as YYYY-MM-DD.",
	CodeChoice:        "Choose one of the listed options.",
	CodeUnknownOption: "%s is not one of the listed options.",
	CodeChoices:       "Select at least one option.",
	CodeKind:          "This answer has the wrong format.",
}

// Issue is a single failed answer.
type Issue struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Validator checks answers against a compiled branch. The zero value
// reports English messages.
type Validator struct {
	translator i18n.Translator
	locale     string
}

// Option configures a Validator.
type Option func(*Validator)

// WithTranslator resolves messages through t.
func WithTranslator(t i18n.Translator) Option {
	return func(v *Validator) {
		v.translator = t
	}
}

// WithLocale selects the message locale.
func WithLocale(locale string) Option {
	return func(v *Validator) {
		v.locale = locale
	}
}

// New builds a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{locale: i18n.English}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate returns one message per visible field that fails its rule. Hidden
// fields never produce errors. The result is never nil.
func Validate(flow *intake.Flow, answers intake.Answers) intake.FieldErrors {
	return New().Validate(flow, answers, nil)
}

// ValidateBranch compiles branch first; a malformed branch is reported as a
// *intake.ConfigurationError instead of field errors.
func ValidateBranch(branch intake.Branch, answers intake.Answers) (intake.FieldErrors, error) {
	flow, err := intake.NewFlow(branch)
	if err != nil {
		return nil, err
	}
	return Validate(flow, answers), nil
}

// Validate is the localized form of the package-level Validate.
func (v *Validator) Validate(flow *intake.Flow, answers intake.Answers, extras map[string]any) intake.FieldErrors {
	errs := intake.FieldErrors{}
	for _, issue := range v.Issues(flow, answers, extras) {
		errs[issue.Field] = issue.Message
	}
	return errs
}

// Issues lists failures in field declaration order.
func (v *Validator) Issues(flow *intake.Flow, answers intake.Answers, extras map[string]any) []Issue {
	var issues []Issue
	for _, field := range flow.Visible(answers, extras) {
		code, arg := check(field, answers[field.Key])
		if code == "" {
			continue
		}
		issues = append(issues, Issue{
			Field:   field.Key,
			Code:    code,
			Message: v.message(code, arg),
		})
	}
	return issues
}

func (v *Validator) message(code Code, arg string) string {
	var args []any
	if code == CodeUnknownOption {
		args = []any{arg}
	}
	key := "validation." + string(code)
	msg := i18n.T(v.translator, v.locale, key, "", func(string, string, string, error) string {
		return ""
	}, args...)
	if msg != "" {
		return msg
	}
	if len(args) > 0 {
		return strings.Replace(fallbackMessages[code], "%s", arg, 1)
	}
	return fallbackMessages[code]
}

// check applies the rule for field.Kind. A stored value of the wrong variant
// is reported before any kind specific rule runs.
func check(field intake.FieldDefinition, value intake.Value) (Code, string) {
	if !value.IsZero() && value.Kind() != field.Kind.ValueKind() {
		return CodeKind, ""
	}

	switch field.Kind {
	case intake.KindShortText, intake.KindLongText:
		if field.Required && strings.TrimSpace(value.String()) == "" {
			return CodeRequired, ""
		}
	case intake.KindDate:
		raw := strings.TrimSpace(value.String())
		if raw == "" {
			if field.Required {
				return CodeRequired, ""
			}
			return "", ""
		}
		if _, err := time.Parse(intake.DateLayout, raw); err != nil {
			return CodeDate, ""
		}
	case intake.KindSingleChoice:
		raw := value.String()
		if raw == "" {
			if field.Required {
				return CodeChoice, ""
			}
			return "", ""
		}
		if !field.HasOption(raw) {
			return CodeUnknownOption, raw
		}
	case intake.KindMultiChoice:
		selected := value.Selected()
		if len(selected) == 0 {
			if field.Required {
				return CodeChoices, ""
			}
			return "", ""
		}
		for _, item := range selected {
			if !field.HasOption(item) {
				return CodeUnknownOption, item
			}
		}
	}
	return "", ""
}
