package selector

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/submission"
)

// Selector maps a classification answer to a compiled branch.
type Selector struct {
	catalog   intake.Catalog
	flows     map[string]*intake.Flow
	fallback  string
	generator submission.Generator
}

// Option configures a Selector.
type Option func(*Selector)

// WithGenerator sets the request number generator handed to sessions built
// from this selector.
func WithGenerator(gen submission.Generator) Option {
	return func(s *Selector) {
		if gen != nil {
			s.generator = gen
		}
	}
}

// New checks catalog and compiles every branch. The first configuration
// problem is returned as a *intake.ConfigurationError.
func New(catalog intake.Catalog, opts ...Option) (*Selector, error) {
	if errs := intake.CheckCatalog(catalog); len(errs) > 0 {
		return nil, errs[0]
	}

	s := &Selector{
		catalog:   catalog,
		flows:     make(map[string]*intake.Flow, len(catalog.Branches)),
		fallback:  strings.TrimSpace(catalog.DefaultBranch),
		generator: submission.DefaultGenerator,
	}
	for _, branch := range catalog.Branches {
		flow, err := intake.NewFlow(branch)
		if err != nil {
			return nil, err
		}
		s.flows[branch.ID] = flow
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Select returns the branch whose id equals classification, else the default
// branch. Without a default an absent or unknown classification is a
// configuration error.
func (s *Selector) Select(classification string) (*intake.Flow, error) {
	if flow, ok := s.flows[strings.TrimSpace(classification)]; ok {
		return flow, nil
	}
	if flow, ok := s.flows[s.fallback]; ok {
		return flow, nil
	}
	return nil, &intake.ConfigurationError{
		Field:  s.catalog.Classification.Key,
		Reason: fmt.Sprintf("no branch for classification %q and no default is configured", classification),
		Err:    intake.ErrNoBranch,
	}
}

// Flow returns the compiled branch with the exact id.
func (s *Selector) Flow(id string) (*intake.Flow, bool) {
	flow, ok := s.flows[id]
	return flow, ok
}

// Classification returns the question used to choose a branch.
func (s *Selector) Classification() intake.FieldDefinition {
	return s.catalog.Classification
}

// Catalog returns the catalog the selector was built from.
func (s *Selector) Catalog() intake.Catalog {
	return s.catalog
}

// Generator returns the configured request number generator.
func (s *Selector) Generator() submission.Generator {
	return s.generator
}
