package i18n

import (
	"strings"

	"github.com/goliatone/go-intake/pkg/intake"
)

// Localize returns a copy of branch with labels, help text and option labels
// resolved for locale. Fields without a `*Key` hint keep their inline text.
func Localize(branch intake.Branch, locale string, t Translator, onMissing MissingTranslationHandler) intake.Branch {
	out := branch
	if key := strings.TrimSpace(branch.LabelKey); key != "" {
		out.Label = T(t, locale, key, branch.Label, onMissing)
	}

	out.Fields = make([]intake.FieldDefinition, len(branch.Fields))
	for i, field := range branch.Fields {
		out.Fields[i] = LocalizeField(field, locale, t, onMissing)
	}
	return out
}

// LocalizeField resolves the display strings of a single field.
func LocalizeField(field intake.FieldDefinition, locale string, t Translator, onMissing MissingTranslationHandler) intake.FieldDefinition {
	if key := strings.TrimSpace(field.LabelKey); key != "" {
		field.Label = T(t, locale, key, field.Label, onMissing)
	}
	if key := strings.TrimSpace(field.HelpTextKey); key != "" {
		field.HelpText = T(t, locale, key, field.HelpText, onMissing)
	}
	if len(field.Options) > 0 {
		options := make([]intake.Option, len(field.Options))
		for i, opt := range field.Options {
			if key := strings.TrimSpace(opt.LabelKey); key != "" {
				opt.Label = T(t, locale, key, opt.Label, onMissing)
			}
			options[i] = opt
		}
		field.Options = options
	}
	return field
}

// LocalizeCatalog localizes the classification question and every branch.
func LocalizeCatalog(catalog intake.Catalog, locale string, t Translator, onMissing MissingTranslationHandler) intake.Catalog {
	out := catalog
	out.Classification = LocalizeField(catalog.Classification, locale, t, onMissing)
	out.Branches = make([]intake.Branch, len(catalog.Branches))
	for i, branch := range catalog.Branches {
		out.Branches[i] = Localize(branch, locale, t, onMissing)
	}
	return out
}
