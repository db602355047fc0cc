package intake

import "strings"

// CheckCatalog reports every configuration problem in c. A nil result means
// each branch compiles and every classification option leads somewhere.
func CheckCatalog(c Catalog) []error {
	var errs []error

	if len(c.Branches) == 0 {
		errs = append(errs, configErr("", "", ErrNoBranch, "catalog declares no branches"))
	}

	ids := make(map[string]struct{}, len(c.Branches))
	for _, branch := range c.Branches {
		if _, err := NewFlow(branch); err != nil {
			errs = append(errs, err)
		}
		if _, dup := ids[branch.ID]; dup {
			errs = append(errs, configErr(branch.ID, "", ErrDuplicateBranch, "duplicate branch id"))
			continue
		}
		ids[branch.ID] = struct{}{}
	}

	def := strings.TrimSpace(c.DefaultBranch)
	if def != "" {
		if _, ok := ids[def]; !ok {
			errs = append(errs, configErr(def, "", ErrUnknownDefault, "default branch is not declared"))
		}
	}

	cls := c.Classification
	if strings.TrimSpace(cls.Key) == "" {
		return errs
	}
	if cls.Kind != KindSingleChoice {
		errs = append(errs, configErr("", cls.Key, ErrUnknownKind, "classification must be %s, got %q", KindSingleChoice, cls.Kind))
		return errs
	}
	if err := checkField("", cls); err != nil {
		errs = append(errs, err)
		return errs
	}
	if def != "" {
		return errs
	}
	for _, opt := range cls.Options {
		if _, ok := ids[opt.Value]; !ok {
			errs = append(errs, configErr("", cls.Key, ErrNoBranch, "classification option %q has no branch and no default is configured", opt.Value))
		}
	}
	return errs
}
