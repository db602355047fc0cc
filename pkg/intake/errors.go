package intake

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Configuration failures. These wrap into ConfigurationError and indicate a
// malformed catalog; they are never shown to end users.
var (
	ErrDuplicateField   = errors.New("intake: duplicate field key")
	ErrDuplicateBranch  = errors.New("intake: duplicate branch id")
	ErrForwardReference = errors.New("intake: visibleWhen references a field not declared earlier")
	ErrInvalidRule      = errors.New("intake: invalid visibleWhen rule")
	ErrUnknownKind      = errors.New("intake: unknown field kind")
	ErrMissingOptions   = errors.New("intake: choice field has no options")
	ErrDuplicateOption  = errors.New("intake: duplicate option value")
	ErrEmptyKey         = errors.New("intake: empty key")
	ErrUnknownDefault   = errors.New("intake: default branch is not defined")
	ErrNoBranch         = errors.New("intake: no branch matches classification and no default is configured")
)

// Runtime misuse of a form session.
var (
	ErrUnknownField       = errors.New("intake: unknown field")
	ErrFieldHidden        = errors.New("intake: field is not visible")
	ErrKindMismatch       = errors.New("intake: value does not match field kind")
	ErrNoBranchSelected   = errors.New("intake: no branch selected")
	ErrInvalidTransition  = errors.New("intake: operation not allowed in current phase")
	ErrSubmitFuncRequired = errors.New("intake: submit function is not configured")
)

// ConfigurationError describes a malformed branch or field definition. It is
// fatal: callers should surface it to developers and stop.
type ConfigurationError struct {
	Branch string
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("intake: configuration error")
	if e.Branch != "" {
		b.WriteString(" in branch ")
		b.WriteString(quote(e.Branch))
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(quote(e.Field))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(branch, field string, err error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Branch: branch,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}

func quote(s string) string { return `"` + s + `"` }

// FieldErrors maps field keys to a user-facing message.
type FieldErrors map[string]string

// Keys returns the failing keys in sorted order.
func (e FieldErrors) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ValidationError carries every field error found in a submit attempt.
type ValidationError struct {
	Errors FieldErrors
	// Form holds messages that could not be tied to a visible field, such as
	// server-side rejections for unknown paths.
	Form []string
}

func (e *ValidationError) Error() string {
	keys := e.Errors.Keys()
	if len(keys) == 0 && len(e.Form) > 0 {
		return "intake: validation failed: " + strings.Join(e.Form, "; ")
	}
	return fmt.Sprintf("intake: validation failed for %d field(s): %s", len(keys), strings.Join(keys, ", "))
}

// SubmissionError wraps a failed handoff to the request-creation endpoint.
type SubmissionError struct {
	RequestNumber string
	StatusCode    int
	Code          string
	Message       string
	// Fields holds per-path messages from a rejected submission, keyed by the
	// paths the server reported.
	Fields map[string][]string
	Err    error
}

func (e *SubmissionError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "submission failed"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("intake: submit %s: %s (status %d)", e.RequestNumber, msg, e.StatusCode)
	}
	return fmt.Sprintf("intake: submit %s: %s", e.RequestNumber, msg)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
