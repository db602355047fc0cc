package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-intake/pkg/visibility"
)

func TestEvaluatorStringComparison(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`afraidToReturn == "yes"`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !prog.Match(visibility.Context{Values: map[string]any{"afraidToReturn": "yes"}}) {
		t.Fatalf("expected true")
	}
	if prog.Match(visibility.Context{Values: map[string]any{"afraidToReturn": "no"}}) {
		t.Fatalf("expected false for no")
	}
}

func TestEvaluatorTruthyAndNot(t *testing.T) {
	t.Parallel()

	truthy, err := Compile("notes")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !truthy.Match(visibility.Context{Values: map[string]any{"notes": "something"}}) {
		t.Fatalf("expected true")
	}

	negated, err := Compile("!notes")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !negated.Match(visibility.Context{Values: map[string]any{"notes": "   "}}) {
		t.Fatalf("expected true for !blank")
	}
}

func TestEvaluatorMissingValueIsNull(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`afraidToReturn == null`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !prog.Match(visibility.Context{}) {
		t.Fatalf("expected missing value to equal null")
	}
	if prog.Match(visibility.Context{Values: map[string]any{"afraidToReturn": "no"}}) {
		t.Fatalf("expected answered value to differ from null")
	}
}

func TestEvaluatorMembership(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`documents == "birth-certificate"`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	selected := visibility.Context{Values: map[string]any{"documents": []any{"passport", "birth-certificate"}}}
	if !prog.Match(selected) {
		t.Fatalf("expected membership match")
	}

	other := visibility.Context{Values: map[string]any{"documents": []any{"passport"}}}
	if prog.Match(other) {
		t.Fatalf("expected no match without birth-certificate")
	}

	negated, err := Compile(`documents != "passport"`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if negated.Match(other) {
		t.Fatalf("expected != to be false when passport is selected")
	}
}

func TestEvaluatorComposition(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`(relationship == "spouse" || relationship == 'parent') && !(priorDenial == yes)`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	cases := []struct {
		name   string
		values map[string]any
		want   bool
	}{
		{name: "spouse", values: map[string]any{"relationship": "spouse"}, want: true},
		{name: "parent denied", values: map[string]any{"relationship": "parent", "priorDenial": "yes"}, want: false},
		{name: "sibling", values: map[string]any{"relationship": "sibling"}, want: false},
	}
	for _, tc := range cases {
		if got := prog.Match(visibility.Context{Values: tc.values}); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestEvaluatorExtras(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`extras.locale == "es" && answered`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	ctx := visibility.Context{
		Values: map[string]any{"answered": true},
		Extras: map[string]any{"locale": "es"},
	}
	if !prog.Match(ctx) {
		t.Fatalf("expected extras lookup to match")
	}
	if diff := cmp.Diff([]string{"answered"}, prog.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileIdentifiers(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`a == "x" && (b || !a) && c != yes`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	// The bare word `yes` is a literal, not a reference.
	if diff := cmp.Diff([]string{"a", "b", "c"}, prog.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileEmptyRuleAlwaysMatches(t *testing.T) {
	t.Parallel()

	prog, err := Compile("   ")
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !prog.Match(visibility.Context{}) {
		t.Fatalf("expected empty rule to match")
	}
	if len(prog.Identifiers()) != 0 {
		t.Fatalf("expected no identifiers, got %v", prog.Identifiers())
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	rules := []string{
		`a = "x"`,
		`a & b`,
		`a | b`,
		`(a == "x"`,
		`a == "x`,
		`a ==`,
		`== "x"`,
		`a == "x" b`,
	}
	for _, rule := range rules {
		if _, err := Compile(rule); err == nil {
			t.Fatalf("expected error for %q", rule)
		}
	}
}

func TestEvaluatorNumberComparison(t *testing.T) {
	t.Parallel()

	prog, err := Compile(`children == 2`)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !prog.Match(visibility.Context{Values: map[string]any{"children": "2"}}) {
		t.Fatalf("expected numeric string to match")
	}
	if _, err := Compile(`children == 2x`); err == nil {
		t.Fatalf("expected invalid number literal to fail compile")
	}
}
