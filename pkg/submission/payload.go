package submission

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/goliatone/go-intake/pkg/intake"
)

// RequestNumberPattern matches identifiers produced by DefaultGenerator.
var RequestNumberPattern = regexp.MustCompile(`^lr-\d{6}$`)

// Generator produces request numbers. Uniqueness is best effort; the server
// owns the final guarantee.
type Generator func() string

// DefaultGenerator returns `lr-` followed by a random integer in
// [100000, 999999].
func DefaultGenerator() string {
	return fmt.Sprintf("lr-%06d", 100000+rand.IntN(900000))
}

// Payload is the canonical request handed to the request-creation endpoint.
type Payload struct {
	RequestNumber string         `json:"requestNumber"`
	BranchID      string         `json:"branchId"`
	CaseTypeLabel string         `json:"caseTypeLabel,omitempty"`
	Locale        string         `json:"locale,omitempty"`
	Answers       intake.Answers `json:"answers"`
	// SubmittedAt is assigned by the server. Compile never sets it.
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Option customises Compile.
type Option func(*compileOptions)

type compileOptions struct {
	generator     Generator
	locale        string
	caseTypeLabel string
}

// WithGenerator overrides the request number generator.
func WithGenerator(gen Generator) Option {
	return func(o *compileOptions) {
		if gen != nil {
			o.generator = gen
		}
	}
}

// WithLocale records the locale the answers were collected in.
func WithLocale(locale string) Option {
	return func(o *compileOptions) {
		o.locale = locale
	}
}

// WithCaseTypeLabel attaches the human readable branch label.
func WithCaseTypeLabel(label string) Option {
	return func(o *compileOptions) {
		o.caseTypeLabel = label
	}
}

// Compile builds the payload from answers restricted to visibleKeys. It does
// no I/O and leaves answers untouched.
func Compile(branchID string, answers intake.Answers, visibleKeys []string, opts ...Option) Payload {
	cfg := compileOptions{generator: DefaultGenerator}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return Payload{
		RequestNumber: cfg.generator(),
		BranchID:      branchID,
		CaseTypeLabel: cfg.caseTypeLabel,
		Locale:        cfg.locale,
		Answers:       answers.Restrict(visibleKeys),
	}
}

// Wire is the decoded JSON shape of a Payload before answers are typed
// against a branch.
type Wire struct {
	RequestNumber string         `json:"requestNumber"`
	BranchID      string         `json:"branchId"`
	CaseTypeLabel string         `json:"caseTypeLabel,omitempty"`
	Locale        string         `json:"locale,omitempty"`
	Answers       map[string]any `json:"answers"`
}

// Decode types the wire answers using the field kinds of flow. Keys the
// branch does not declare are dropped. Values that do not fit their field
// kind are reported per key.
func (w Wire) Decode(flow *intake.Flow) (Payload, intake.FieldErrors) {
	payload := Payload{
		RequestNumber: w.RequestNumber,
		BranchID:      w.BranchID,
		CaseTypeLabel: w.CaseTypeLabel,
		Locale:        w.Locale,
		Answers:       make(intake.Answers, len(w.Answers)),
	}

	var errs intake.FieldErrors
	for key, raw := range w.Answers {
		field, ok := flow.Field(key)
		if !ok || raw == nil {
			continue
		}
		value, err := intake.ParseValue(field.Kind, raw)
		if err != nil {
			if errs == nil {
				errs = intake.FieldErrors{}
			}
			errs[key] = err.Error()
			continue
		}
		payload.Answers[key] = value
	}
	return payload, errs
}
