package submission

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-intake/pkg/intake"
)

// MapErrors splits a server error payload into field errors keyed by the
// visible field keys and form-level messages. Paths may use JSON pointer or
// dotted notation and may be wrapped in body/answers segments. Unknown paths
// become form-level errors so messages are not lost.
func MapErrors(visibleKeys []string, payload map[string][]string) *intake.ValidationError {
	mapped := &intake.ValidationError{Errors: intake.FieldErrors{}}
	if len(payload) == 0 {
		return mapped
	}

	known := make(map[string]struct{}, len(visibleKeys))
	for _, key := range visibleKeys {
		known[key] = struct{}{}
	}

	for rawPath, messages := range payload {
		messages = normalizeMessages(messages)
		if len(messages) == 0 {
			continue
		}

		key, ok := mapErrorPath(rawPath, known)
		if !ok {
			mapped.Form = append(mapped.Form, messages...)
			continue
		}
		if existing := mapped.Errors[key]; existing != "" {
			messages = append([]string{existing}, messages...)
		}
		mapped.Errors[key] = strings.Join(normalizeMessages(messages), "; ")
	}

	mapped.Form = normalizeMessages(mapped.Form)
	return mapped
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, known map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}

	segments := dropWrapperSegments(parsePathSegments(trimmed))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		if _, ok := known[segment]; ok {
			return segment, true
		}
		// Answers are flat, so only the first named segment can be a key.
		return "", false
	}
	return "", false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"body":    {},
		"request": {},
		"payload": {},
		"data":    {},
		"answers": {},
	}

	out := segments
	for len(out) > 0 {
		if _, ok := wrappers[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
