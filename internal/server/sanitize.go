package server

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-intake/pkg/intake"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// sanitizeText strips markup from free text and returns plain text. The
// strict policy escapes entities, so the result is unescaped again for
// storage.
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(trimmed)))
}

// sanitizeAnswers cleans free-text answers in place. Choice and date values
// are checked against the branch by the validator instead. An answer that is
// only markup becomes empty and is removed so required checks still apply.
func sanitizeAnswers(flow *intake.Flow, answers intake.Answers) {
	for key, value := range answers {
		if value.Kind() != intake.ValueText {
			continue
		}
		if _, ok := flow.Field(key); !ok {
			continue
		}
		cleaned := sanitizeText(value.String())
		if cleaned == "" {
			delete(answers, key)
			continue
		}
		answers[key] = intake.Text(cleaned)
	}
}
