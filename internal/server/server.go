// Package server exposes the intake catalog and request creation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/routers"
	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-intake/internal/notify"
	"github.com/goliatone/go-intake/internal/repository"
	"github.com/goliatone/go-intake/internal/storage"
	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/selector"
	"github.com/goliatone/go-intake/pkg/submission"
	"github.com/goliatone/go-intake/pkg/validation"
)

const defaultNumberAttempts = 5

// Server wires the intake engine to persistence and notification.
type Server struct {
	selector   *selector.Selector
	requests   repository.RequestStore
	notifier   *notify.Notifier
	archive    *storage.Archive
	translator i18n.Translator
	logger     *slog.Logger
	generator  submission.Generator
	now        func() time.Time
	locale     string
	attempts   int
	contract   routers.Router
}

// Option configures a Server.
type Option func(*Server)

// WithRequests sets the request store. Defaults to an in-memory store.
func WithRequests(store repository.RequestStore) Option {
	return func(s *Server) {
		if store != nil {
			s.requests = store
		}
	}
}

// WithNotifier enables the confirmation endpoint.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Server) {
		s.notifier = n
	}
}

// WithArchive writes every accepted payload to archive storage.
func WithArchive(a *storage.Archive) Option {
	return func(s *Server) {
		s.archive = a
	}
}

// WithTranslator localizes catalog responses and validation messages.
func WithTranslator(t i18n.Translator) Option {
	return func(s *Server) {
		s.translator = t
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGenerator replaces the generator used to resolve request number
// collisions.
func WithGenerator(gen submission.Generator) Option {
	return func(s *Server) {
		if gen != nil {
			s.generator = gen
		}
	}
}

// WithClock overrides the time source for submittedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultLocale sets the locale used when a request names none.
func WithDefaultLocale(locale string) Option {
	return func(s *Server) {
		if locale != "" {
			s.locale = i18n.NormalizeLocale(locale)
		}
	}
}

// WithNumberAttempts bounds request number regeneration on collisions.
func WithNumberAttempts(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// New validates the catalog and loads the API contract.
func New(ctx context.Context, catalog intake.Catalog, opts ...Option) (*Server, error) {
	s := &Server{
		requests:  repository.NewMemoryRequests(),
		logger:    slog.Default(),
		generator: submission.DefaultGenerator,
		now:       time.Now,
		locale:    i18n.English,
		attempts:  defaultNumberAttempts,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	sel, err := selector.New(catalog, selector.WithGenerator(s.generator))
	if err != nil {
		return nil, err
	}
	s.selector = sel

	contract, err := loadContract(ctx)
	if err != nil {
		return nil, err
	}
	s.contract = contract
	return s, nil
}

// Handler returns the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), s.validateContract(s.contract))

	r.GET("/health", s.health)
	r.GET("/api/openapi.yaml", s.openapi)

	api := r.Group("/api")
	api.GET("/case-types", s.listCaseTypes)
	api.GET("/case-types/:id", s.getCaseType)
	api.POST("/requests", s.createRequest)
	api.GET("/requests/:number", s.getRequest)
	api.POST("/requests/:number/confirmation", s.sendConfirmation)

	r.NoRoute(func(c *gin.Context) {
		s.fail(c, StatusError{Code: http.StatusNotFound, ErrCode: CodeNotFound, Message: "route not found"})
	})
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) openapi(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", OpenAPISpec())
}

// requestLocale picks the explicit locale, then ?lang=, then
// Accept-Language, then the default.
func (s *Server) requestLocale(c *gin.Context, explicit string) string {
	supported := []string{i18n.English, i18n.Spanish}
	for _, candidate := range []string{explicit, c.Query("lang")} {
		if lang := i18n.NormalizeLocale(candidate); slices.Contains(supported, lang) {
			return lang
		}
	}
	return i18n.FromAcceptLanguage(c.GetHeader("Accept-Language"), supported, s.locale)
}

func (s *Server) listCaseTypes(c *gin.Context) {
	locale := s.requestLocale(c, "")
	respond(c, http.StatusOK, i18n.LocalizeCatalog(s.selector.Catalog(), locale, s.translator, nil))
}

func (s *Server) getCaseType(c *gin.Context) {
	flow, ok := s.selector.Flow(c.Param("id"))
	if !ok {
		s.fail(c, StatusError{Code: http.StatusNotFound, ErrCode: CodeUnknownBranch, Message: fmt.Sprintf("unknown case type %q", c.Param("id"))})
		return
	}
	locale := s.requestLocale(c, "")
	respond(c, http.StatusOK, i18n.Localize(flow.Branch(), locale, s.translator, nil))
}

type createResponse struct {
	RequestNumber string    `json:"requestNumber"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

func (s *Server) createRequest(c *gin.Context) {
	var wire submission.Wire
	if err := c.ShouldBindJSON(&wire); err != nil {
		s.fail(c, StatusError{Code: http.StatusBadRequest, ErrCode: CodeInvalidRequest, Message: err.Error(), Err: err})
		return
	}

	locale := s.requestLocale(c, wire.Locale)
	payload, err := s.accept(wire, locale)
	if err != nil {
		s.fail(c, err)
		return
	}

	req, err := s.persist(c.Request.Context(), payload)
	if err != nil {
		s.fail(c, err)
		return
	}
	payload.RequestNumber = req.RequestNumber

	s.archivePayload(c.Request.Context(), req, payload)

	s.logger.Info("request accepted", "requestNumber", req.RequestNumber, "branch", req.BranchID, "locale", req.Locale)
	respond(c, http.StatusCreated, createResponse{RequestNumber: req.RequestNumber, SubmittedAt: req.SubmittedAt})
}

// accept re-runs the engine on the submitted answers: decode against the
// branch, sanitize free text, prune hidden answers, then validate.
func (s *Server) accept(wire submission.Wire, locale string) (submission.Payload, error) {
	flow, ok := s.selector.Flow(wire.BranchID)
	if !ok {
		return submission.Payload{}, StatusError{
			Code:    http.StatusUnprocessableEntity,
			ErrCode: CodeUnknownBranch,
			Message: fmt.Sprintf("unknown branch %q", wire.BranchID),
			Fields:  map[string][]string{"branchId": {"unknown branch"}},
		}
	}

	payload, decodeErrs := wire.Decode(flow)
	if len(decodeErrs) > 0 {
		return submission.Payload{}, validationFailure(decodeErrs)
	}
	payload.Locale = locale

	extras := map[string]any{"locale": locale}
	sanitizeAnswers(flow, payload.Answers)
	flow.Prune(payload.Answers, extras)

	v := validation.New(validation.WithTranslator(s.translator), validation.WithLocale(locale))
	if errs := v.Validate(flow, payload.Answers, extras); len(errs) > 0 {
		return submission.Payload{}, validationFailure(errs)
	}

	// The branch owns its label; a client-supplied one is ignored.
	branch := flow.Branch()
	payload.CaseTypeLabel = i18n.T(s.translator, locale, branch.LabelKey, branch.Label, nil)
	now := s.now().UTC()
	payload.SubmittedAt = &now
	return payload, nil
}

func validationFailure(errs intake.FieldErrors) StatusError {
	fields := make(map[string][]string, len(errs))
	for _, key := range errs.Keys() {
		fields[key] = []string{errs[key]}
	}
	return StatusError{
		Code:    http.StatusUnprocessableEntity,
		ErrCode: CodeValidationFailed,
		Message: (&intake.ValidationError{Errors: errs}).Error(),
		Fields:  fields,
	}
}

// persist stores the request, regenerating the number on collision. The
// server owns uniqueness; the client number is only a proposal.
func (s *Server) persist(ctx context.Context, payload submission.Payload) (*repository.Request, error) {
	answers, err := json.Marshal(payload.Answers)
	if err != nil {
		return nil, fmt.Errorf("server: encode answers: %w", err)
	}

	number := payload.RequestNumber
	if !submission.RequestNumberPattern.MatchString(number) {
		number = s.generator()
	}
	for attempt := 1; attempt <= s.attempts; attempt++ {
		req := &repository.Request{
			RequestNumber: number,
			BranchID:      payload.BranchID,
			CaseTypeLabel: payload.CaseTypeLabel,
			Locale:        payload.Locale,
			Answers:       answers,
			SubmittedAt:   *payload.SubmittedAt,
		}
		err := s.requests.Create(ctx, req)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, repository.ErrDuplicateRequestNumber) {
			return nil, err
		}
		s.logger.Warn("request number collision", "requestNumber", number, "attempt", attempt)
		number = s.generator()
	}
	return nil, StatusError{
		Code:    http.StatusServiceUnavailable,
		ErrCode: CodeNumberExhausted,
		Message: "could not allocate a request number",
	}
}

// archivePayload is best effort: the request is already stored.
func (s *Server) archivePayload(ctx context.Context, req *repository.Request, payload submission.Payload) {
	if s.archive == nil {
		return
	}
	key, err := s.archive.Save(ctx, payload)
	if err != nil {
		s.logger.Error("archive failed", "requestNumber", req.RequestNumber, "error", err)
		return
	}
	if err := s.requests.SetArchiveKey(ctx, req.ID, key); err != nil {
		s.logger.Error("archive key not recorded", "requestNumber", req.RequestNumber, "key", key, "error", err)
		return
	}
	req.ArchiveKey = key
}

func (s *Server) getRequest(c *gin.Context) {
	req, err := s.requests.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, req)
}

type confirmationRequest struct {
	Locale string `json:"locale"`
	Email  string `json:"email"`
}

type confirmationResponse struct {
	ID     string                 `json:"id"`
	Status repository.EmailStatus `json:"status"`
}

func (s *Server) sendConfirmation(c *gin.Context) {
	if s.notifier == nil {
		s.fail(c, StatusError{Code: http.StatusServiceUnavailable, ErrCode: CodeUnavailable, Message: "confirmation emails are disabled"})
		return
	}

	var body confirmationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			s.fail(c, StatusError{Code: http.StatusBadRequest, ErrCode: CodeInvalidRequest, Message: err.Error(), Err: err})
			return
		}
	}

	ctx := c.Request.Context()
	req, err := s.requests.GetByNumber(ctx, c.Param("number"))
	if err != nil {
		s.fail(c, err)
		return
	}

	locale := req.Locale
	if strings.TrimSpace(body.Locale) != "" {
		locale = s.requestLocale(c, body.Locale)
	}

	confirmation := notify.Confirmation{
		RequestNumber: req.RequestNumber,
		Locale:        locale,
		CaseTypeLabel: req.CaseTypeLabel,
		Recipient:     body.Email,
	}
	if flow, ok := s.selector.Flow(req.BranchID); ok {
		branch := i18n.Localize(flow.Branch(), locale, s.translator, nil)
		confirmation.CaseTypeLabel = branch.Label
		var raw map[string]any
		if err := json.Unmarshal(req.Answers, &raw); err == nil {
			payload, _ := submission.Wire{Answers: raw}.Decode(flow)
			confirmation.Answers = notify.Lines(branch, payload.Answers)
		}
	}

	email, err := s.notifier.Enqueue(ctx, confirmation)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("confirmation queued", "requestNumber", req.RequestNumber, "locale", email.Locale)
	respond(c, http.StatusAccepted, confirmationResponse{ID: email.ID.String(), Status: email.Status})
}
