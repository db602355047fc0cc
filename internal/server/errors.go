package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-intake/internal/repository"
)

// Error codes carried in the response envelope.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnknownBranch    = "UNKNOWN_BRANCH"
	CodeNotFound         = "NOT_FOUND"
	CodeNumberExhausted  = "REQUEST_NUMBER_EXHAUSTED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// StatusError carries the HTTP status and envelope code for a failure.
type StatusError struct {
	Code    int
	ErrCode string
	Message string
	Fields  map[string][]string
	Err     error
}

func (e StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

func (e StatusError) Unwrap() error { return e.Err }

// StatusCode defaults to 500.
func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type errorBody struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func (s *Server) fail(c *gin.Context, err error) {
	var se StatusError
	if !errors.As(err, &se) {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			se = StatusError{Code: http.StatusNotFound, ErrCode: CodeNotFound, Message: "not found", Err: err}
		default:
			se = StatusError{Code: http.StatusInternalServerError, ErrCode: CodeInternal, Message: "internal error", Err: err}
		}
	}
	status := se.StatusCode()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err)
	}

	code := se.ErrCode
	if code == "" {
		code = CodeInternal
	}
	c.AbortWithStatusJSON(status, envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: se.Error(), Fields: se.Fields},
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
