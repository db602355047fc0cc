// Package notify renders localized confirmation emails and queues them in
// the outbox. Delivery happens elsewhere.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-intake/internal/repository"
	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/intake"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// AnswerLine is one localized question/answer pair in the email.
type AnswerLine struct {
	Label string
	Value string
}

// Confirmation is the data behind one email.
type Confirmation struct {
	RequestNumber string
	Locale        string
	CaseTypeLabel string
	Answers       []AnswerLine
	Recipient     string
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithTranslator resolves subject and body strings.
func WithTranslator(t i18n.Translator) Option {
	return func(m *Mailer) {
		m.translator = t
	}
}

// WithBaseURL adds a tracking link built from the public site URL.
func WithBaseURL(base string) Option {
	return func(m *Mailer) {
		m.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithTemplates replaces the bundled templates. The FS must hold
// confirmation.<locale>.tpl files.
func WithTemplates(fsys fs.FS) Option {
	return func(m *Mailer) {
		if fsys != nil {
			m.templatesFS = fsys
		}
	}
}

// Mailer renders confirmation emails from pongo2 templates.
type Mailer struct {
	mu          sync.RWMutex
	set         *pongo2.TemplateSet
	templates   map[string]*pongo2.Template
	templatesFS fs.FS
	translator  i18n.Translator
	baseURL     string
	fallback    string
}

// New builds a Mailer over the bundled templates.
func New(opts ...Option) (*Mailer, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("notify: templates: %w", err)
	}
	m := &Mailer{
		templates:   make(map[string]*pongo2.Template),
		templatesFS: sub,
		fallback:    i18n.English,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.set = pongo2.NewSet("intake-email", pongo2.NewFSLoader(m.templatesFS))
	return m, nil
}

func (m *Mailer) template(locale string) (*pongo2.Template, error) {
	name := "confirmation." + locale + ".tpl"

	m.mu.RLock()
	if tmpl, ok := m.templates[name]; ok {
		m.mu.RUnlock()
		return tmpl, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if tmpl, ok := m.templates[name]; ok {
		return tmpl, nil
	}
	if _, err := fs.Stat(m.templatesFS, name); err != nil {
		return nil, fmt.Errorf("notify: template %s: %w", name, err)
	}
	tmpl, err := m.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("notify: load template %s: %w", name, err)
	}
	m.templates[name] = tmpl
	return tmpl, nil
}

// Render returns the subject and plain-text body for c. Unknown locales use
// English.
func (m *Mailer) Render(c Confirmation) (string, string, error) {
	if strings.TrimSpace(c.RequestNumber) == "" {
		return "", "", errors.New("notify: request number is required")
	}
	locale := i18n.NormalizeLocale(c.Locale)
	tmpl, err := m.template(locale)
	if err != nil {
		locale = m.fallback
		if tmpl, err = m.template(locale); err != nil {
			return "", "", err
		}
	}

	t := func(key, fallback string, args ...any) string {
		return i18n.T(m.translator, locale, key, fallback, nil, args...)
	}
	ctx := pongo2.Context{
		"greeting":        t("email.confirmation.greeting", "Thank you for contacting us."),
		"body":            t("email.confirmation.body", "We received your request and an attorney will review it soon."),
		"tracking":        t("email.confirmation.tracking", "Your request number is %s. Keep it to check your status.", c.RequestNumber),
		"caseTypeHeading": t("email.confirmation.caseType", "Case type"),
		"caseType":        c.CaseTypeLabel,
		"answers":         c.Answers,
		"requestNumber":   c.RequestNumber,
		"trackingURL":     "",
	}
	if m.baseURL != "" {
		ctx["trackingURL"] = m.baseURL + "/requests/" + c.RequestNumber
	}

	var buf bytes.Buffer
	m.mu.RLock()
	err = tmpl.ExecuteWriter(ctx, &buf)
	m.mu.RUnlock()
	if err != nil {
		return "", "", fmt.Errorf("notify: render %s: %w", c.RequestNumber, err)
	}

	subject := t("email.confirmation.subject", "Your request %s was received", c.RequestNumber)
	return subject, strings.TrimSpace(buf.String()) + "\n", nil
}

// Lines turns answers into display lines in branch order. The branch is
// expected to be localized already. Hidden or unanswered fields are skipped
// because answers only hold visible values.
func Lines(branch intake.Branch, answers intake.Answers) []AnswerLine {
	var out []AnswerLine
	for _, field := range branch.Fields {
		value, ok := answers[field.Key]
		if !ok || value.IsZero() {
			continue
		}
		var display string
		switch value.Kind() {
		case intake.ValueChoice:
			display = field.OptionLabel(value.String())
		case intake.ValueChoices:
			labels := make([]string, 0, len(value.Selected()))
			for _, v := range value.Selected() {
				labels = append(labels, field.OptionLabel(v))
			}
			display = strings.Join(labels, ", ")
		default:
			display = value.String()
		}
		out = append(out, AnswerLine{Label: field.Label, Value: display})
	}
	return out
}

// Notifier renders and enqueues confirmations.
type Notifier struct {
	mailer *Mailer
	outbox repository.OutboxStore
}

// NewNotifier pairs a mailer with an outbox.
func NewNotifier(mailer *Mailer, outbox repository.OutboxStore) *Notifier {
	return &Notifier{mailer: mailer, outbox: outbox}
}

// Enqueue renders c and stores it as a pending outbox email.
func (n *Notifier) Enqueue(ctx context.Context, c Confirmation) (*repository.OutboxEmail, error) {
	subject, body, err := n.mailer.Render(c)
	if err != nil {
		return nil, err
	}
	email := &repository.OutboxEmail{
		RequestNumber: c.RequestNumber,
		Locale:        i18n.NormalizeLocale(c.Locale),
		Recipient:     strings.TrimSpace(c.Recipient),
		Subject:       subject,
		Body:          body,
	}
	if err := n.outbox.Enqueue(ctx, email); err != nil {
		return nil, err
	}
	return email, nil
}
