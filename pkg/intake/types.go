package intake

// FieldKind enumerates the input kinds an intake question can take.
type FieldKind string

const (
	KindShortText    FieldKind = "short-text"
	KindLongText     FieldKind = "long-text"
	KindDate         FieldKind = "date"
	KindSingleChoice FieldKind = "single-choice"
	KindMultiChoice  FieldKind = "multi-choice"
)

// DateLayout is the calendar-date format accepted for date answers.
const DateLayout = "2006-01-02"

// Valid reports whether k is one of the known kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindShortText, KindLongText, KindDate, KindSingleChoice, KindMultiChoice:
		return true
	default:
		return false
	}
}

// IsChoice reports whether the kind carries an option list.
func (k FieldKind) IsChoice() bool {
	return k == KindSingleChoice || k == KindMultiChoice
}

// Option is a single selectable value for choice kinds. LabelKey is resolved
// through a translator when the branch is localized.
type Option struct {
	Value    string `json:"value" yaml:"value"`
	Label    string `json:"label" yaml:"label"`
	LabelKey string `json:"labelKey,omitempty" yaml:"labelKey,omitempty"`
}

// FieldDefinition declares one question inside a branch.
//
// VisibleWhen holds a rule string evaluated against the answers of fields
// declared earlier in the same branch, for example `afraidToReturn == "yes"`.
// An empty rule means the field is always visible.
type FieldDefinition struct {
	Key         string    `json:"key" yaml:"key"`
	Kind        FieldKind `json:"kind" yaml:"kind"`
	Label       string    `json:"label" yaml:"label"`
	LabelKey    string    `json:"labelKey,omitempty" yaml:"labelKey,omitempty"`
	HelpText    string    `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	HelpTextKey string    `json:"helpTextKey,omitempty" yaml:"helpTextKey,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
	VisibleWhen string    `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
}

// HasOption reports whether value is one of the field's option values.
func (f FieldDefinition) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// OptionLabel returns the display label for value, or value itself when the
// option is unknown or unlabeled.
func (f FieldDefinition) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value && opt.Label != "" {
			return opt.Label
		}
	}
	return value
}

// Branch is the ordered question set for one case type or situation.
type Branch struct {
	ID       string            `json:"id" yaml:"id"`
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
	LabelKey string            `json:"labelKey,omitempty" yaml:"labelKey,omitempty"`
	Fields   []FieldDefinition `json:"fields" yaml:"fields"`
}

// Catalog is the full set of branches plus the classification question used
// to choose between them.
type Catalog struct {
	Classification FieldDefinition `json:"classification" yaml:"classification"`
	DefaultBranch  string          `json:"defaultBranch,omitempty" yaml:"defaultBranch,omitempty"`
	Branches       []Branch        `json:"branches" yaml:"branches"`
}

// Branch returns the branch with the supplied id.
func (c Catalog) Branch(id string) (Branch, bool) {
	for _, b := range c.Branches {
		if b.ID == id {
			return b, true
		}
	}
	return Branch{}, false
}
