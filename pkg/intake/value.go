package intake

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueText
	ValueDate
	ValueChoice
	ValueChoices
)

func (k ValueKind) String() string {
	switch k {
	case ValueText:
		return "text"
	case ValueDate:
		return "date"
	case ValueChoice:
		return "choice"
	case ValueChoices:
		return "choices"
	default:
		return "none"
	}
}

// ValueKind returns the Value variant a field of kind k stores.
func (k FieldKind) ValueKind() ValueKind {
	switch k {
	case KindShortText, KindLongText:
		return ValueText
	case KindDate:
		return ValueDate
	case KindSingleChoice:
		return ValueChoice
	case KindMultiChoice:
		return ValueChoices
	default:
		return ValueNone
	}
}

// Value is a typed answer. The zero Value carries nothing and is never stored
// in Answers. Use the constructors to build one variant per field kind.
type Value struct {
	kind ValueKind
	text string
	set  []string
}

// Text builds an answer for short-text and long-text fields.
func Text(s string) Value { return Value{kind: ValueText, text: s} }

// Date builds an answer for date fields. The string is checked against
// DateLayout at validation time, not here.
func Date(s string) Value { return Value{kind: ValueDate, text: s} }

// Choice builds an answer for single-choice fields.
func Choice(s string) Value { return Value{kind: ValueChoice, text: s} }

// Choices builds an answer for multi-choice fields. Duplicates are dropped
// while the first-seen order is kept.
func Choices(values ...string) Value {
	set := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(set, v) {
			set = append(set, v)
		}
	}
	return Value{kind: ValueChoices, set: set}
}

// Kind reports the variant.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether v holds no variant.
func (v Value) IsZero() bool { return v.kind == ValueNone }

// String returns the scalar payload (empty for multi-choice).
func (v Value) String() string { return v.text }

// Selected returns a copy of the multi-choice selection.
func (v Value) Selected() []string { return slices.Clone(v.set) }

// Any exposes the value to rule evaluation: scalars as string, selections as
// []any so membership comparisons work.
func (v Value) Any() any {
	switch v.kind {
	case ValueChoices:
		out := make([]any, len(v.set))
		for i, s := range v.set {
			out[i] = s
		}
		return out
	case ValueNone:
		return nil
	default:
		return v.text
	}
}

// Equal reports deep equality. go-cmp picks this up automatically.
func (v Value) Equal(other Value) bool {
	return v.kind == other.kind && v.text == other.text && slices.Equal(v.set, other.set)
}

// MarshalJSON encodes scalars as strings and selections as string arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueChoices:
		set := v.set
		if set == nil {
			set = []string{}
		}
		return json.Marshal(set)
	case ValueNone:
		return []byte("null"), nil
	default:
		return json.Marshal(v.text)
	}
}

// ParseValue converts a loosely typed input (decoded JSON, CLI text) into the
// Value variant expected by kind.
func ParseValue(kind FieldKind, raw any) (Value, error) {
	switch kind.ValueKind() {
	case ValueText, ValueDate, ValueChoice:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s expects a string, got %T", ErrKindMismatch, kind, raw)
		}
		switch kind.ValueKind() {
		case ValueDate:
			return Date(strings.TrimSpace(s)), nil
		case ValueChoice:
			return Choice(s), nil
		default:
			return Text(s), nil
		}
	case ValueChoices:
		switch typed := raw.(type) {
		case []string:
			return Choices(typed...), nil
		case []any:
			out := make([]string, 0, len(typed))
			for _, item := range typed {
				s, ok := item.(string)
				if !ok {
					return Value{}, fmt.Errorf("%w: %s expects string items, got %T", ErrKindMismatch, kind, item)
				}
				out = append(out, s)
			}
			return Choices(out...), nil
		case string:
			if strings.TrimSpace(typed) == "" {
				return Choices(), nil
			}
			return Choices(splitList(typed)...), nil
		default:
			return Value{}, fmt.Errorf("%w: %s expects a list, got %T", ErrKindMismatch, kind, raw)
		}
	default:
		return Value{}, fmt.Errorf("%w: unknown kind %q", ErrKindMismatch, kind)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Answers maps field keys to typed values.
type Answers map[string]Value

// Clone returns an independent copy.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = Value{kind: v.kind, text: v.text, set: slices.Clone(v.set)}
	}
	return out
}

// Restrict returns the subset of a whose keys appear in keys.
func (a Answers) Restrict(keys []string) Answers {
	out := make(Answers, len(keys))
	for _, key := range keys {
		if v, ok := a[key]; ok {
			out[key] = Value{kind: v.kind, text: v.text, set: slices.Clone(v.set)}
		}
	}
	return out
}

// Values flattens the answers into the map shape rule evaluation reads.
func (a Answers) Values() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v.Any()
	}
	return out
}

// Keys returns the answered keys in sorted order.
func (a Answers) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
