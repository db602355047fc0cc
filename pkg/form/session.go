package form

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/selector"
	"github.com/goliatone/go-intake/pkg/submission"
	"github.com/goliatone/go-intake/pkg/validation"
)

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseSelecting  Phase = "selecting"
	PhaseAnswering  Phase = "answering"
	PhaseSubmitting Phase = "submitting"
	PhaseAccepted   Phase = "accepted"
	PhaseRejected   Phase = "rejected"
	PhaseCompiled   Phase = "compiled"
	PhaseHandedOff  Phase = "handed-off"
	PhaseCancelled  Phase = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseHandedOff || p == PhaseCancelled
}

// SubmitFunc hands a compiled payload to the request-creation collaborator.
type SubmitFunc func(ctx context.Context, payload submission.Payload) (submission.Receipt, error)

// State is a snapshot of the form.
type State struct {
	BranchID string             `json:"branchId,omitempty"`
	Phase    Phase              `json:"phase"`
	Answers  intake.Answers     `json:"answers"`
	Errors   intake.FieldErrors `json:"errors,omitempty"`
	Form     []string           `json:"formErrors,omitempty"`
}

// Session drives one user's intake. It is not safe for concurrent use; a
// caller issues one operation at a time.
type Session struct {
	selector   *selector.Selector
	translator i18n.Translator
	locale     string
	extras     map[string]any
	submit     SubmitFunc
	observer   func(from, to Phase)

	phase      Phase
	flow       *intake.Flow
	answers    intake.Answers
	errors     intake.FieldErrors
	formErrors []string
	payload    *submission.Payload
	receipt    *submission.Receipt
}

// Option configures a Session.
type Option func(*Session)

// WithLocale sets the locale used for messages and the compiled payload.
func WithLocale(locale string) Option {
	return func(s *Session) {
		if locale != "" {
			s.locale = i18n.NormalizeLocale(locale)
		}
	}
}

// WithTranslator resolves labels and validation messages.
func WithTranslator(t i18n.Translator) Option {
	return func(s *Session) {
		s.translator = t
	}
}

// WithSubmitFunc wires the outbound collaborator used by Submit.
func WithSubmitFunc(fn SubmitFunc) Option {
	return func(s *Session) {
		s.submit = fn
	}
}

// WithExtras exposes session data to visibility rules under `extras.`. The
// session keeps its own copy.
func WithExtras(extras map[string]any) Option {
	return func(s *Session) {
		s.extras = extras
	}
}

// WithObserver is called on every phase change, including the transient
// accepted and rejected phases.
func WithObserver(fn func(from, to Phase)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// New starts a session in the selecting phase.
func New(sel *selector.Selector, opts ...Option) *Session {
	s := &Session{
		selector: sel,
		locale:   i18n.English,
		phase:    PhaseSelecting,
		answers:  intake.Answers{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.extras = maps.Clone(s.extras)
	if s.extras == nil {
		s.extras = map[string]any{}
	}
	if _, ok := s.extras["locale"]; !ok {
		s.extras["locale"] = s.locale
	}
	return s
}

// Phase reports the current lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Locale reports the session locale.
func (s *Session) Locale() string { return s.locale }

// Flow returns the active branch, or nil before a branch is selected.
func (s *Session) Flow() *intake.Flow { return s.flow }

// State returns a copy of the current form state.
func (s *Session) State() State {
	st := State{
		Phase:   s.phase,
		Answers: s.answers.Clone(),
		Form:    slices.Clone(s.formErrors),
	}
	if s.flow != nil {
		st.BranchID = s.flow.ID()
	}
	if len(s.errors) > 0 {
		st.Errors = make(intake.FieldErrors, len(s.errors))
		for k, v := range s.errors {
			st.Errors[k] = v
		}
	}
	return st
}

// Payload returns the compiled payload while a handoff is pending.
func (s *Session) Payload() (submission.Payload, bool) {
	if s.payload == nil {
		return submission.Payload{}, false
	}
	return *s.payload, true
}

// Receipt returns the server acknowledgement after a successful handoff.
func (s *Session) Receipt() (submission.Receipt, bool) {
	if s.receipt == nil {
		return submission.Receipt{}, false
	}
	return *s.receipt, true
}

func (s *Session) transition(to Phase) {
	from := s.phase
	s.phase = to
	if s.observer != nil && from != to {
		s.observer(from, to)
	}
}

func (s *Session) editable() error {
	switch s.phase {
	case PhaseAnswering, PhaseCompiled:
		return nil
	case PhaseSelecting:
		return fmt.Errorf("form: %w", intake.ErrNoBranchSelected)
	default:
		return fmt.Errorf("form: %w: %s", intake.ErrInvalidTransition, s.phase)
	}
}

// SelectBranch picks the branch for classification and discards every
// answer and error. An unresolvable classification is returned as a
// *intake.ConfigurationError and leaves the session unchanged.
func (s *Session) SelectBranch(classification string) error {
	switch s.phase {
	case PhaseSelecting, PhaseAnswering, PhaseCompiled:
	default:
		return fmt.Errorf("form: %w: %s", intake.ErrInvalidTransition, s.phase)
	}
	if s.selector == nil {
		return &intake.ConfigurationError{Reason: "session has no selector", Err: intake.ErrNoBranch}
	}

	flow, err := s.selector.Select(classification)
	if err != nil {
		return err
	}

	s.flow = flow
	s.answers = intake.Answers{}
	s.errors = nil
	s.formErrors = nil
	s.payload = nil
	s.transition(PhaseAnswering)
	return nil
}

// SetAnswer stores value under key and prunes answers of fields that became
// hidden. It returns the pruned keys. A zero value clears the answer.
func (s *Session) SetAnswer(key string, value intake.Value) ([]string, error) {
	if err := s.editable(); err != nil {
		return nil, err
	}
	if value.IsZero() {
		return s.ClearAnswer(key)
	}

	field, ok := s.flow.Field(key)
	if !ok {
		return nil, fmt.Errorf("form: set %q: %w", key, intake.ErrUnknownField)
	}
	if !slices.Contains(s.flow.VisibleKeys(s.answers, s.extras), key) {
		return nil, fmt.Errorf("form: set %q: %w", key, intake.ErrFieldHidden)
	}
	if want := field.Kind.ValueKind(); value.Kind() != want {
		return nil, fmt.Errorf("form: set %q: %w: %s field takes a %s value, got %s", key, intake.ErrKindMismatch, field.Kind, want, value.Kind())
	}

	s.answers[key] = value
	return s.afterEdit(key), nil
}

// SetRaw parses raw with the field kind and stores it. It accepts the loose
// shapes produced by JSON decoding and prompt libraries.
func (s *Session) SetRaw(key string, raw any) ([]string, error) {
	if err := s.editable(); err != nil {
		return nil, err
	}
	field, ok := s.flow.Field(key)
	if !ok {
		return nil, fmt.Errorf("form: set %q: %w", key, intake.ErrUnknownField)
	}
	value, err := intake.ParseValue(field.Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("form: set %q: %w", key, err)
	}
	return s.SetAnswer(key, value)
}

// ClearAnswer removes the answer for key and prunes dependents.
func (s *Session) ClearAnswer(key string) ([]string, error) {
	if err := s.editable(); err != nil {
		return nil, err
	}
	if _, ok := s.flow.Field(key); !ok {
		return nil, fmt.Errorf("form: clear %q: %w", key, intake.ErrUnknownField)
	}
	delete(s.answers, key)
	return s.afterEdit(key), nil
}

func (s *Session) afterEdit(key string) []string {
	removed := s.flow.Prune(s.answers, s.extras)
	delete(s.errors, key)
	for _, k := range removed {
		delete(s.errors, k)
	}
	// A pending payload no longer reflects the answers.
	s.payload = nil
	s.transition(PhaseAnswering)
	return removed
}

// VisibleFields returns the ordered visible subset of the active branch. It
// is a pure function of the current answers.
func (s *Session) VisibleFields() []intake.FieldDefinition {
	if s.flow == nil {
		return nil
	}
	return s.flow.Visible(s.answers, s.extras)
}

// LocalizedFields is VisibleFields with display strings resolved for the
// session locale.
func (s *Session) LocalizedFields() []intake.FieldDefinition {
	fields := s.VisibleFields()
	for i, field := range fields {
		fields[i] = i18n.LocalizeField(field, s.locale, s.translator, nil)
	}
	return fields
}

// Validate runs the validator without changing phase.
func (s *Session) Validate() intake.FieldErrors {
	if s.flow == nil {
		return intake.FieldErrors{}
	}
	return s.validator().Validate(s.flow, s.answers, s.extras)
}

func (s *Session) validator() *validation.Validator {
	return validation.New(validation.WithTranslator(s.translator), validation.WithLocale(s.locale))
}

// Submit validates, compiles and hands the payload to the submit function.
//
// Field errors return the session to answering with a *intake.ValidationError.
// A failed handoff keeps the compiled payload so a later Submit resends the
// same request number; the session never retries on its own.
func (s *Session) Submit(ctx context.Context) (submission.Receipt, error) {
	if s.submit == nil {
		return submission.Receipt{}, fmt.Errorf("form: %w", intake.ErrSubmitFuncRequired)
	}
	if err := s.editable(); err != nil {
		return submission.Receipt{}, err
	}

	if s.phase == PhaseAnswering || s.payload == nil {
		s.transition(PhaseSubmitting)
		s.flow.Prune(s.answers, s.extras)

		errs := s.validator().Validate(s.flow, s.answers, s.extras)
		if len(errs) > 0 {
			s.errors = errs
			s.formErrors = nil
			s.transition(PhaseRejected)
			s.transition(PhaseAnswering)
			return submission.Receipt{}, &intake.ValidationError{Errors: errs}
		}

		s.errors = nil
		s.formErrors = nil
		s.transition(PhaseAccepted)

		branch := s.flow.Branch()
		payload := submission.Compile(branch.ID, s.answers, s.flow.VisibleKeys(s.answers, s.extras),
			submission.WithGenerator(s.selector.Generator()),
			submission.WithLocale(s.locale),
			submission.WithCaseTypeLabel(i18n.T(s.translator, s.locale, branch.LabelKey, branch.Label, nil)),
		)
		s.payload = &payload
		s.transition(PhaseCompiled)
	}

	receipt, err := s.submit(ctx, *s.payload)
	if err != nil {
		return submission.Receipt{}, s.handoffFailed(err)
	}

	s.receipt = &receipt
	s.payload = nil
	s.answers = intake.Answers{}
	s.transition(PhaseHandedOff)
	return receipt, nil
}

func (s *Session) handoffFailed(err error) error {
	var subErr *intake.SubmissionError
	if !errors.As(err, &subErr) {
		subErr = &intake.SubmissionError{RequestNumber: s.payload.RequestNumber, Err: err}
	}

	// The server rejected specific answers: surface them like local
	// validation and go back to answering.
	if len(subErr.Fields) > 0 {
		mapped := submission.MapErrors(s.flow.VisibleKeys(s.answers, s.extras), subErr.Fields)
		s.errors = mapped.Errors
		s.formErrors = mapped.Form
		s.payload = nil
		s.transition(PhaseAnswering)
		return mapped
	}
	return subErr
}

// Cancel abandons the session. It is a no-op once terminal.
func (s *Session) Cancel() {
	if s.phase.Terminal() {
		return
	}
	s.answers = intake.Answers{}
	s.errors = nil
	s.formErrors = nil
	s.payload = nil
	s.transition(PhaseCancelled)
}

// Classification returns the question that picks the branch.
func (s *Session) Classification() intake.FieldDefinition {
	if s.selector == nil {
		return intake.FieldDefinition{}
	}
	return s.selector.Classification()
}
