package i18n_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-intake/pkg/i18n"
	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/testsupport"
)

func TestDefaultBundleCoversCatalogKeys(t *testing.T) {
	t.Parallel()

	bundle, err := i18n.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	catalog := testsupport.Catalog()
	keys := collectKeys(catalog.Classification)
	for _, branch := range catalog.Branches {
		keys = append(keys, branch.LabelKey)
		for _, field := range branch.Fields {
			keys = append(keys, collectKeys(field)...)
		}
	}

	for _, locale := range []string{i18n.English, i18n.Spanish} {
		for _, key := range keys {
			if _, err := bundle.Translate(locale, key); err != nil {
				t.Fatalf("%s: missing %q: %v", locale, key, err)
			}
		}
	}
}

func collectKeys(field intake.FieldDefinition) []string {
	var keys []string
	if field.LabelKey != "" {
		keys = append(keys, field.LabelKey)
	}
	if field.HelpTextKey != "" {
		keys = append(keys, field.HelpTextKey)
	}
	for _, opt := range field.Options {
		if opt.LabelKey != "" {
			keys = append(keys, opt.LabelKey)
		}
	}
	return keys
}

func TestBundleFallbackAndArgs(t *testing.T) {
	t.Parallel()

	bundle := i18n.NewBundle("en")
	bundle.Add("en", map[string]string{"greet": "Hello %s", "only.en": "English"})
	bundle.Add("es-MX", map[string]string{"greet": "Hola %s"})

	got, err := bundle.Translate("es_US", "greet", "Ana")
	if err != nil || got != "Hola Ana" {
		t.Fatalf("expected regional tag to resolve to es, got %q %v", got, err)
	}

	got, err = bundle.Translate("es", "only.en")
	if err != nil || got != "English" {
		t.Fatalf("expected fallback locale, got %q %v", got, err)
	}

	if _, err := bundle.Translate("es", "missing"); !errors.Is(err, i18n.ErrMissingTranslation) {
		t.Fatalf("expected ErrMissingTranslation, got %v", err)
	}

	if !bundle.Has("ES-mx") || bundle.Has("fr") {
		t.Fatalf("unexpected Has result for es/fr")
	}
	if diff := cmp.Diff([]string{"en", "es"}, bundle.Locales()); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalizeUsesKeysAndFallbacks(t *testing.T) {
	t.Parallel()

	branch := intake.Branch{
		ID:       "asylum",
		Label:    "Asylum",
		LabelKey: "caseTypes.asylum",
		Fields: []intake.FieldDefinition{
			{Key: "a", Kind: intake.KindShortText, Label: "Inline only"},
			{Key: "b", Kind: intake.KindSingleChoice, Label: "Afraid?", LabelKey: "asylum.afraidToReturn.label", Options: []intake.Option{
				{Value: "yes", Label: "Yes", LabelKey: "options.yesNo.yes"},
				{Value: "maybe", Label: "Maybe", LabelKey: "options.unknown"},
			}},
		},
	}

	got := i18n.Localize(branch, "es", i18n.MustDefault(), nil)

	if got.Label != "Asilo" {
		t.Fatalf("expected translated branch label, got %q", got.Label)
	}
	if got.Fields[0].Label != "Inline only" {
		t.Fatalf("expected inline label to survive, got %q", got.Fields[0].Label)
	}
	if got.Fields[1].Label != "¿Tiene miedo de regresar a su país?" {
		t.Fatalf("unexpected field label %q", got.Fields[1].Label)
	}
	if got.Fields[1].Options[0].Label != "Sí" || got.Fields[1].Options[1].Label != "Maybe" {
		t.Fatalf("unexpected option labels %+v", got.Fields[1].Options)
	}
	if branch.Fields[1].Options[0].Label != "Yes" {
		t.Fatalf("expected source branch untouched")
	}
}

func TestTOnMissing(t *testing.T) {
	t.Parallel()

	var gotErr error
	out := i18n.T(nil, "es", "some.key", "Fallback", func(locale, key, fallback string, err error) string {
		gotErr = err
		return "[" + key + "]"
	})
	if out != "[some.key]" {
		t.Fatalf("expected handler output, got %q", out)
	}
	if !errors.Is(gotErr, i18n.ErrMissingTranslator) {
		t.Fatalf("expected ErrMissingTranslator, got %v", gotErr)
	}

	if out := i18n.T(nil, "es", "some.key", "", nil); out != "some.key" {
		t.Fatalf("expected key as last resort, got %q", out)
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	t.Parallel()

	supported := []string{"en", "es"}
	cases := map[string]string{
		"es-MX,es;q=0.9,en;q=0.8": "es",
		"fr-FR, en-US;q=0.5":      "en",
		"de":                      "en",
		"":                        "en",
	}
	for header, want := range cases {
		if got := i18n.FromAcceptLanguage(header, supported, "en"); got != want {
			t.Fatalf("%q: expected %s, got %s", header, want, got)
		}
	}
}
