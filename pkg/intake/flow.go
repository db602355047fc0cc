package intake

import (
	"slices"
	"strings"

	"github.com/goliatone/go-intake/pkg/visibility"
	"github.com/goliatone/go-intake/pkg/visibility/expr"
)

// Flow is a checked, ready-to-run Branch. Rules are compiled once when the
// flow is built so visibility evaluation never fails afterwards.
type Flow struct {
	branch   Branch
	programs []*expr.Program
	index    map[string]int
}

// NewFlow checks the branch definition and compiles its visibility rules.
// Any problem is reported as a *ConfigurationError.
func NewFlow(branch Branch) (*Flow, error) {
	if strings.TrimSpace(branch.ID) == "" {
		return nil, configErr("", "", ErrEmptyKey, "branch id is required")
	}

	flow := &Flow{
		branch:   cloneBranch(branch),
		programs: make([]*expr.Program, len(branch.Fields)),
		index:    make(map[string]int, len(branch.Fields)),
	}

	for i, field := range flow.branch.Fields {
		if err := checkField(branch.ID, field); err != nil {
			return nil, err
		}
		if _, exists := flow.index[field.Key]; exists {
			return nil, configErr(branch.ID, field.Key, ErrDuplicateField, "duplicate field key")
		}

		prog, err := expr.Compile(field.VisibleWhen)
		if err != nil {
			return nil, configErr(branch.ID, field.Key, ErrInvalidRule, "visibleWhen %q: %v", field.VisibleWhen, err)
		}
		// Only keys already in the index are declared earlier; this also
		// rejects self references.
		for _, ident := range prog.Identifiers() {
			if _, ok := flow.index[ident]; !ok {
				return nil, configErr(branch.ID, field.Key, ErrForwardReference, "visibleWhen references %q which is not declared earlier", ident)
			}
		}

		flow.programs[i] = prog
		flow.index[field.Key] = i
	}

	return flow, nil
}

func checkField(branchID string, field FieldDefinition) error {
	if strings.TrimSpace(field.Key) == "" {
		return configErr(branchID, "", ErrEmptyKey, "field key is required")
	}
	if !field.Kind.Valid() {
		return configErr(branchID, field.Key, ErrUnknownKind, "unknown kind %q", field.Kind)
	}
	if !field.Kind.IsChoice() {
		return nil
	}
	if len(field.Options) == 0 {
		return configErr(branchID, field.Key, ErrMissingOptions, "%s field needs at least one option", field.Kind)
	}
	seen := make(map[string]struct{}, len(field.Options))
	for _, opt := range field.Options {
		if strings.TrimSpace(opt.Value) == "" {
			return configErr(branchID, field.Key, ErrEmptyKey, "option value is required")
		}
		if _, dup := seen[opt.Value]; dup {
			return configErr(branchID, field.Key, ErrDuplicateOption, "duplicate option %q", opt.Value)
		}
		seen[opt.Value] = struct{}{}
	}
	return nil
}

// ID returns the branch id.
func (f *Flow) ID() string { return f.branch.ID }

// Branch returns a copy of the underlying definition.
func (f *Flow) Branch() Branch { return cloneBranch(f.branch) }

// Field looks up a field definition by key.
func (f *Flow) Field(key string) (FieldDefinition, bool) {
	i, ok := f.index[key]
	if !ok {
		return FieldDefinition{}, false
	}
	return f.branch.Fields[i], true
}

// Evaluate reports the visibility of every field in declaration order.
//
// The pass runs left to right. A field's rule only sees answers of earlier
// fields that are themselves visible, so stale answers for hidden fields never
// leak into later decisions.
func (f *Flow) Evaluate(answers Answers, extras map[string]any) []bool {
	out := make([]bool, len(f.branch.Fields))
	ctx := visibility.Context{
		Values: make(map[string]any, len(answers)),
		Extras: extras,
	}
	for i, field := range f.branch.Fields {
		out[i] = f.programs[i].Match(ctx)
		if !out[i] {
			continue
		}
		if v, ok := answers[field.Key]; ok && !v.IsZero() {
			ctx.Values[field.Key] = v.Any()
		}
	}
	return out
}

// Visible returns the ordered subset of fields visible for answers.
func (f *Flow) Visible(answers Answers, extras map[string]any) []FieldDefinition {
	mask := f.Evaluate(answers, extras)
	out := make([]FieldDefinition, 0, len(mask))
	for i, visible := range mask {
		if visible {
			out = append(out, f.branch.Fields[i])
		}
	}
	return out
}

// VisibleKeys is Visible reduced to field keys.
func (f *Flow) VisibleKeys(answers Answers, extras map[string]any) []string {
	mask := f.Evaluate(answers, extras)
	out := make([]string, 0, len(mask))
	for i, visible := range mask {
		if visible {
			out = append(out, f.branch.Fields[i].Key)
		}
	}
	return out
}

// Prune deletes, in place, every answer whose field is hidden or unknown to
// the branch and returns the removed keys in sorted order.
func (f *Flow) Prune(answers Answers, extras map[string]any) []string {
	mask := f.Evaluate(answers, extras)
	var removed []string
	for key := range answers {
		i, ok := f.index[key]
		if ok && mask[i] {
			continue
		}
		delete(answers, key)
		removed = append(removed, key)
	}
	slices.Sort(removed)
	return removed
}

func cloneBranch(b Branch) Branch {
	out := b
	out.Fields = make([]FieldDefinition, len(b.Fields))
	for i, field := range b.Fields {
		field.Options = slices.Clone(field.Options)
		out.Fields[i] = field
	}
	return out
}
