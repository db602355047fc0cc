package validation

import (
	"errors"
	"strings"

	"github.com/goliatone/go-intake/pkg/intake"
)

// CatalogIssue locates a configuration problem inside a catalog.
type CatalogIssue struct {
	Branch  string `json:"branch,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// CatalogResult captures lint outcomes for a catalog.
type CatalogResult struct {
	Valid  bool           `json:"valid"`
	Issues []CatalogIssue `json:"issues,omitempty"`
}

// ValidateCatalog collects every configuration problem instead of stopping
// at the first one.
func ValidateCatalog(catalog intake.Catalog) CatalogResult {
	result := CatalogResult{Valid: true}
	for _, err := range intake.CheckCatalog(catalog) {
		result.Valid = false
		result.Issues = append(result.Issues, issueFromError(err))
	}
	return result
}

func issueFromError(err error) CatalogIssue {
	if err == nil {
		return CatalogIssue{Message: "unknown error"}
	}
	var cfgErr *intake.ConfigurationError
	if errors.As(err, &cfgErr) {
		msg := strings.TrimSpace(cfgErr.Reason)
		if msg == "" && cfgErr.Err != nil {
			msg = strings.TrimPrefix(cfgErr.Err.Error(), "intake: ")
		}
		return CatalogIssue{Branch: cfgErr.Branch, Field: cfgErr.Field, Message: msg}
	}
	return CatalogIssue{Message: strings.TrimPrefix(strings.TrimSpace(err.Error()), "intake: ")}
}
