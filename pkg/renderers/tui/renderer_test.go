package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-intake/pkg/form"
	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/selector"
	"github.com/goliatone/go-intake/pkg/submission"
	"github.com/goliatone/go-intake/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if val == "<abort>" {
		return "", ErrAborted
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type submitter struct {
	payloads []submission.Payload
	errs     []error
}

func (s *submitter) submit(_ context.Context, p submission.Payload) (submission.Receipt, error) {
	s.payloads = append(s.payloads, p)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return submission.Receipt{}, err
		}
	}
	return submission.Receipt{RequestNumber: p.RequestNumber}, nil
}

func newSession(t *testing.T, sub *submitter) *form.Session {
	t.Helper()

	sel, err := selector.New(testsupport.Catalog(), selector.WithGenerator(func() string { return "lr-555111" }))
	if err != nil {
		t.Fatalf("selector.New: %v", err)
	}
	return form.New(sel, form.WithSubmitFunc(sub.submit))
}

func TestRunAsylumHappyPath(t *testing.T) {
	driver := &stubDriver{
		// caseType=asylum, afraidToReturn=no, inRemovalProceedings=yes
		selectIdx: []int{0, 1, 0},
		// entryMethod, entryDate, courtDate (optional, skipped)
		inputs: []string{"flew on a tourist visa", "2019-05-01", ""},
	}
	sub := &submitter{}
	session := newSession(t, sub)

	receipt, err := New(WithPromptDriver(driver)).Run(context.Background(), session)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if receipt.RequestNumber != "lr-555111" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if session.Phase() != form.PhaseHandedOff {
		t.Fatalf("expected handed-off, got %s", session.Phase())
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("expected one submission, got %d", len(sub.payloads))
	}

	want := intake.Answers{
		"entryMethod":          intake.Text("flew on a tourist visa"),
		"entryDate":            intake.Date("2019-05-01"),
		"afraidToReturn":       intake.Choice("no"),
		"inRemovalProceedings": intake.Choice("yes"),
	}
	if diff := cmp.Diff(want, sub.payloads[0].Answers); diff != "" {
		t.Fatalf("payload answers mismatch (-want +got):\n%s", diff)
	}

	wantPrompts := []string{
		"What kind of help do you need?",
		"How did you enter the U.S.? *",
		"When did you enter the U.S.? *",
		"Are you afraid to return to your country? *",
		"Are you in removal proceedings? *",
		"Next court date, if known",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	if last := driver.infoMessages[len(driver.infoMessages)-1]; !strings.Contains(last, "lr-555111") {
		t.Fatalf("expected confirmation message, got %q", last)
	}
}

func TestRunReasksRejectedFields(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{0, 1, 1},
		// entryDate left blank first, then answered on the second pass
		inputs: []string{"by land", "", "2020-02-02"},
	}
	sub := &submitter{}
	session := newSession(t, sub)

	if _, err := New(WithPromptDriver(driver)).Run(context.Background(), session); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if driver.inputPos != 3 {
		t.Fatalf("expected entryDate to be asked twice, inputs consumed %d", driver.inputPos)
	}
	if got := sub.payloads[0].Answers["entryDate"]; !got.Equal(intake.Date("2020-02-02")) {
		t.Fatalf("unexpected entryDate %v", got)
	}

	var sawError bool
	for _, msg := range driver.infoMessages {
		if strings.HasPrefix(msg, "✗ entryDate:") {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected entryDate error in %v", driver.infoMessages)
	}
}

func TestRunRevealsDependentField(t *testing.T) {
	driver := &stubDriver{
		// asylum, afraidToReturn=yes, inRemovalProceedings=no
		selectIdx: []int{0, 0, 1},
		inputs:    []string{"by sea", "2018-01-01"},
		textAreas: []string{"threats from a local gang"},
	}
	sub := &submitter{}
	session := newSession(t, sub)

	if _, err := New(WithPromptDriver(driver)).Run(context.Background(), session); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := sub.payloads[0].Answers["reasonAfraid"]; !got.Equal(intake.Text("threats from a local gang")) {
		t.Fatalf("expected reasonAfraid to be asked and kept, got %v", got)
	}
}

func TestRunRetriesFailedHandoffWithSameNumber(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{3, 0},
		textAreas: []string{"need help with a work permit"},
		confirm:   []bool{true},
	}
	sub := &submitter{errs: []error{&intake.SubmissionError{RequestNumber: "lr-555111", StatusCode: 503, Message: "unavailable"}}}
	session := newSession(t, sub)

	receipt, err := New(WithPromptDriver(driver)).Run(context.Background(), session)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sub.payloads) != 2 {
		t.Fatalf("expected a retry, got %d submissions", len(sub.payloads))
	}
	if sub.payloads[0].RequestNumber != sub.payloads[1].RequestNumber || receipt.RequestNumber != "lr-555111" {
		t.Fatalf("retry must resend the same request number: %+v", sub.payloads)
	}
}

func TestRunDeclinedRetryReturnsSubmissionError(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{3, 0},
		textAreas: []string{"question"},
		confirm:   []bool{false},
	}
	sub := &submitter{errs: []error{errors.New("connection refused")}}
	session := newSession(t, sub)

	_, err := New(WithPromptDriver(driver)).Run(context.Background(), session)
	var serr *intake.SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if session.Phase() != form.PhaseCompiled {
		t.Fatalf("expected compiled phase to allow a later retry, got %s", session.Phase())
	}
}

func formOnlyRejection() error {
	return &intake.SubmissionError{
		RequestNumber: "lr-555111",
		StatusCode:    422,
		Message:       "rejected",
		Fields:        map[string][]string{"form": {"duplicate request"}},
	}
}

func TestRunFormOnlyRejectionWaitsForUser(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{3, 0},
		textAreas: []string{"question"},
		confirm:   []bool{false},
	}
	sub := &submitter{errs: []error{formOnlyRejection(), formOnlyRejection()}}
	session := newSession(t, sub)

	_, err := New(WithPromptDriver(driver), WithMaxAttempts(0)).Run(context.Background(), session)
	var verr *intake.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(sub.payloads) != 1 {
		t.Fatalf("expected a single submission without user input, got %d", len(sub.payloads))
	}
	if session.Phase() != form.PhaseAnswering {
		t.Fatalf("expected answering, got %s", session.Phase())
	}

	var sawForm bool
	for _, msg := range driver.infoMessages {
		if msg == "✗ duplicate request" {
			sawForm = true
		}
	}
	if !sawForm {
		t.Fatalf("expected form message in %v", driver.infoMessages)
	}
}

func TestRunFormOnlyRejectionReviewsAnswers(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{3, 0, 0},
		textAreas: []string{"question", "question with more detail"},
		confirm:   []bool{true},
	}
	sub := &submitter{errs: []error{formOnlyRejection()}}
	session := newSession(t, sub)

	if _, err := New(WithPromptDriver(driver)).Run(context.Background(), session); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sub.payloads) != 2 {
		t.Fatalf("expected one resubmission after review, got %d submissions", len(sub.payloads))
	}
	if got := sub.payloads[1].Answers["description"]; !got.Equal(intake.Text("question with more detail")) {
		t.Fatalf("expected revised description, got %v", got)
	}

	wantPrompts := []string{
		"What kind of help do you need?",
		"Describe your situation *",
		"How should we contact you? *",
		"The request was not accepted. Review your answers and submit again?",
		"Describe your situation *",
		"How should we contact you? *",
	}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAbortCancelsSession(t *testing.T) {
	driver := &stubDriver{
		selectIdx: []int{0},
		inputs:    []string{"<abort>"},
	}
	session := newSession(t, &submitter{})

	_, err := New(WithPromptDriver(driver)).Run(context.Background(), session)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if session.Phase() != form.PhaseCancelled {
		t.Fatalf("expected cancelled, got %s", session.Phase())
	}
	if diff := cmp.Diff([]string{"Intake cancelled."}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeFormats(t *testing.T) {
	payload := submission.Payload{
		RequestNumber: "lr-100200",
		BranchID:      "family-outside-us",
		Locale:        "es",
		Answers: intake.Answers{
			"relationship": intake.Choice("parent"),
			"documents":    intake.Choices("passport", "birth-certificate"),
		},
	}

	pretty, err := Encode(payload, OutputFormatPrettyText)
	if err != nil {
		t.Fatalf("pretty: %v", err)
	}
	wantPretty := strings.Join([]string{
		"answers.documents[0]=passport",
		"answers.documents[1]=birth-certificate",
		"answers.relationship=parent",
		"branchId=family-outside-us",
		"locale=es",
		"requestNumber=lr-100200",
		"",
	}, "\n")
	if diff := cmp.Diff(wantPretty, string(pretty)); diff != "" {
		t.Fatalf("pretty mismatch (-want +got):\n%s", diff)
	}

	urlEncoded, err := Encode(payload, OutputFormatFormURLEncoded)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if !strings.Contains(string(urlEncoded), "answers.documents%5B%5D=passport") {
		t.Fatalf("unexpected form encoding %s", urlEncoded)
	}

	js, err := Encode(payload, OutputFormatJSON)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	testsupport.Golden(t, filepath.Join("testdata", "payload.json.golden"), js)

	if _, err := Encode(payload, "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
