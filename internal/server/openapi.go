package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPISpec []byte

// OpenAPISpec returns the API contract served at /api/openapi.yaml.
func OpenAPISpec() []byte {
	return slices.Clone(openAPISpec)
}

func loadContract(ctx context.Context) (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("server: parse openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("server: invalid openapi: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("server: openapi router: %w", err)
	}
	return router, nil
}

// validateContract rejects requests that do not match the OpenAPI document.
// Routes the document does not describe pass through.
func (s *Server) validateContract(router routers.Router) gin.HandlerFunc {
	options := &openapi3filter.Options{
		MultiError:         true,
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}
	return func(c *gin.Context) {
		route, params, err := router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: params,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			fields := map[string][]string{}
			var messages []string
			collectContractIssues(err, "", fields, &messages)
			message := "request does not match the API contract"
			if len(messages) > 0 {
				message = strings.Join(messages, "; ")
			}
			if len(fields) == 0 {
				fields = nil
			}
			s.fail(c, StatusError{
				Code:    http.StatusBadRequest,
				ErrCode: CodeInvalidRequest,
				Message: message,
				Fields:  fields,
				Err:     err,
			})
			return
		}
		c.Next()
	}
}

// collectContractIssues flattens kin-openapi errors into path keyed messages
// using dotted paths such as "body.answers.entryDate".
func collectContractIssues(err error, prefix string, fields map[string][]string, messages *[]string) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collectContractIssues(inner, prefix, fields, messages)
		}
	case *openapi3filter.RequestError:
		next := prefix
		switch {
		case e.Parameter != nil:
			next = joinPath(prefix, e.Parameter.Name)
		case e.RequestBody != nil:
			next = joinPath(prefix, "body")
		}
		if e.Err == nil {
			*messages = append(*messages, e.Error())
			return
		}
		var schemaErr *openapi3.SchemaError
		var multi openapi3.MultiError
		if errors.As(e.Err, &multi) || errors.As(e.Err, &schemaErr) {
			collectContractIssues(e.Err, next, fields, messages)
			return
		}
		if next != "" {
			fields[next] = append(fields[next], e.Err.Error())
			return
		}
		*messages = append(*messages, e.Error())
	case *openapi3.SchemaError:
		path := joinPath(prefix, strings.Join(e.JSONPointer(), "."))
		if path == "" {
			*messages = append(*messages, e.Reason)
			return
		}
		fields[path] = append(fields[path], e.Reason)
	default:
		*messages = append(*messages, err.Error())
	}
}

func joinPath(prefix, segment string) string {
	switch {
	case prefix == "":
		return segment
	case segment == "":
		return prefix
	default:
		return prefix + "." + segment
	}
}
