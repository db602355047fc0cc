// Package visibility holds the inputs shared by visibility rules.
package visibility

// Context provides inputs to a visibility rule. Values holds the current
// answers keyed by field key while Extras carries session data such as the
// locale or the user role, addressed from rules with the `extras.` prefix.
type Context struct {
	Values map[string]any
	Extras map[string]any
}
