package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-intake/pkg/form"
	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/submission"
)

// ErrTooManyAttempts is returned when a form keeps failing validation past
// the configured attempt limit.
var ErrTooManyAttempts = errors.New("tui: too many rejected attempts")

// Runner walks a user through an intake session in the terminal.
type Runner struct {
	driver      PromptDriver
	out         io.Writer
	translator  i18n.Translator
	theme       Theme
	maxAttempts int
}

// New constructs a Runner backed by survey prompts unless a driver is
// supplied.
func New(options ...Option) *Runner {
	r := &Runner{
		out: os.Stdout,
		theme: Theme{
			RequiredSuffix: " *",
			ErrorPrefix:    "✗ ",
			InfoPrefix:     "› ",
		},
		maxAttempts: 5,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = newSurveyDriver(r.out, r.theme)
	}
	return r
}

// Run selects a branch when needed, asks every visible question in order and
// submits. Rejected answers are shown and asked again; a rejection that names
// no field asks whether to review every answer. A failed handoff asks whether
// to retry. Aborting a prompt cancels the session.
func (r *Runner) Run(ctx context.Context, session *form.Session) (submission.Receipt, error) {
	receipt, err := r.run(ctx, session)
	if errors.Is(err, ErrAborted) {
		session.Cancel()
		_ = r.driver.Info(ctx, r.info(session.Locale(), "tui.cancelled", "Intake cancelled."))
	}
	return receipt, err
}

func (r *Runner) run(ctx context.Context, session *form.Session) (submission.Receipt, error) {
	if session.Phase() == form.PhaseSelecting {
		if err := r.selectBranch(ctx, session); err != nil {
			return submission.Receipt{}, err
		}
	}

	asked := map[string]bool{}
	attempts := 0
	for {
		if err := r.askPending(ctx, session, asked); err != nil {
			return submission.Receipt{}, err
		}

		receipt, err := session.Submit(ctx)
		if err == nil {
			msg := i18n.T(r.translator, session.Locale(), "tui.submitted", "Request %s submitted.", nil, receipt.RequestNumber)
			_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
			return receipt, nil
		}

		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			attempts++
			if r.maxAttempts > 0 && attempts >= r.maxAttempts {
				return submission.Receipt{}, fmt.Errorf("%w: %w", ErrTooManyAttempts, err)
			}
			r.report(ctx, session.Locale(), verr)
			if len(verr.Errors) == 0 {
				// Nothing to re-ask: let the user review every answer or stop.
				review, cerr := r.driver.Confirm(ctx, ConfirmConfig{
					Message: i18n.T(r.translator, session.Locale(), "tui.review", "The request was not accepted. Review your answers and submit again?", nil),
					Default: true,
				})
				if cerr != nil {
					return submission.Receipt{}, cerr
				}
				if !review {
					return submission.Receipt{}, err
				}
				clear(asked)
				continue
			}
			for key := range verr.Errors {
				delete(asked, key)
			}
			continue
		}

		var serr *intake.SubmissionError
		if !errors.As(err, &serr) {
			return submission.Receipt{}, err
		}
		_ = r.driver.Info(ctx, r.theme.ErrorPrefix+serr.Error())
		retry, cerr := r.driver.Confirm(ctx, ConfirmConfig{
			Message: i18n.T(r.translator, session.Locale(), "tui.retry", "Submission failed. Try again?", nil),
			Default: true,
		})
		if cerr != nil {
			return submission.Receipt{}, cerr
		}
		if !retry {
			return submission.Receipt{}, err
		}
	}
}

func (r *Runner) selectBranch(ctx context.Context, session *form.Session) error {
	field := i18n.LocalizeField(session.Classification(), session.Locale(), r.translator, nil)
	if len(field.Options) == 0 {
		return &intake.ConfigurationError{Field: field.Key, Reason: "classification has no options", Err: intake.ErrNoBranch}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:  field.Label,
		Help:     field.HelpText,
		Options:  optionLabels(field),
		PageSize: len(field.Options),
	})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(field.Options) {
		return fmt.Errorf("tui: selection %d out of range", idx)
	}
	return session.SelectBranch(field.Options[idx].Value)
}

// askPending prompts for every visible field not yet asked. Visibility is
// recomputed after each answer since an answer can reveal or hide later
// fields.
func (r *Runner) askPending(ctx context.Context, session *form.Session, asked map[string]bool) error {
	for {
		next, ok := nextField(session.LocalizedFields(), asked)
		if !ok {
			return nil
		}
		if err := r.ask(ctx, session, next); err != nil {
			return err
		}
		asked[next.Key] = true
	}
}

func nextField(fields []intake.FieldDefinition, asked map[string]bool) (intake.FieldDefinition, bool) {
	for _, field := range fields {
		if !asked[field.Key] {
			return field, true
		}
	}
	return intake.FieldDefinition{}, false
}

func (r *Runner) ask(ctx context.Context, session *form.Session, field intake.FieldDefinition) error {
	current := session.State().Answers[field.Key]
	message := field.Label
	if message == "" {
		message = field.Key
	}
	if field.Required {
		message += r.theme.RequiredSuffix
	}

	switch field.Kind {
	case intake.KindShortText, intake.KindDate:
		cfg := InputConfig{Message: message, Help: field.HelpText, Default: current.String()}
		if field.Kind == intake.KindDate {
			cfg.Validator = validDate
		}
		response, err := r.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		return r.store(session, field, strings.TrimSpace(response))

	case intake.KindLongText:
		response, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: field.HelpText, Default: current.String()})
		if err != nil {
			return err
		}
		return r.store(session, field, strings.TrimSpace(response))

	case intake.KindSingleChoice:
		labels := optionLabels(field)
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message,
			Help:         field.HelpText,
			Options:      labels,
			DefaultIndex: optionIndex(field, current.String()),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(field.Options) {
			return fmt.Errorf("tui: %s: selection %d out of range", field.Key, idx)
		}
		_, err = session.SetAnswer(field.Key, intake.Choice(field.Options[idx].Value))
		return err

	case intake.KindMultiChoice:
		var defaults []int
		for _, v := range current.Selected() {
			if i := optionIndex(field, v); i >= 0 {
				defaults = append(defaults, i)
			}
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  message,
			Help:     field.HelpText,
			Options:  optionLabels(field),
			Defaults: defaults,
		})
		if err != nil {
			return err
		}
		values := make([]string, 0, len(indices))
		for _, i := range indices {
			if i >= 0 && i < len(field.Options) {
				values = append(values, field.Options[i].Value)
			}
		}
		if len(values) == 0 {
			_, err = session.ClearAnswer(field.Key)
			return err
		}
		_, err = session.SetAnswer(field.Key, intake.Choices(values...))
		return err

	default:
		return fmt.Errorf("tui: %s: %w: %s", field.Key, intake.ErrUnknownKind, field.Kind)
	}
}

func (r *Runner) store(session *form.Session, field intake.FieldDefinition, response string) error {
	if response == "" {
		_, err := session.ClearAnswer(field.Key)
		return err
	}
	_, err := session.SetRaw(field.Key, response)
	return err
}

func (r *Runner) report(ctx context.Context, locale string, verr *intake.ValidationError) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+r.info(locale, "tui.fixErrors", "Please fix the highlighted answers."))
	for _, msg := range verr.Form {
		_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
	}
	for _, key := range verr.Errors.Keys() {
		_ = r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, key, verr.Errors[key]))
	}
}

func (r *Runner) info(locale, key, fallback string) string {
	return i18n.T(r.translator, locale, key, fallback, nil)
}

func validDate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(intake.DateLayout, raw); err != nil {
		return fmt.Errorf("expected %s", intake.DateLayout)
	}
	return nil
}

func optionLabels(field intake.FieldDefinition) []string {
	out := make([]string, len(field.Options))
	for i, opt := range field.Options {
		out[i] = field.OptionLabel(opt.Value)
	}
	return out
}

func optionIndex(field intake.FieldDefinition, value string) int {
	for i, opt := range field.Options {
		if opt.Value == value {
			return i
		}
	}
	return -1
}

// Encode renders a compiled payload in the requested output format. It is
// used for dry runs where nothing is sent.
func Encode(payload submission.Payload, format OutputFormat) ([]byte, error) {
	values := map[string]any{
		"requestNumber": payload.RequestNumber,
		"branchId":      payload.BranchID,
		"answers":       payload.Answers.Values(),
	}
	if payload.CaseTypeLabel != "" {
		values["caseTypeLabel"] = payload.CaseTypeLabel
	}
	if payload.Locale != "" {
		values["locale"] = payload.Locale
	}

	switch format {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	case OutputFormatJSON, "":
		return json.MarshalIndent(payload, "", "  ")
	default:
		return nil, fmt.Errorf("tui: unsupported output format %q", format)
	}
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

// writePretty walks keys in sorted order so output is stable.
func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}
