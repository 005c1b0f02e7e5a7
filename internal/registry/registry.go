// Package registry holds the canonical command table: every operation the
// system knows how to run, its verb synonyms with weights, its risk tier and
// cost profile.
package registry

import (
	"fmt"
	"sort"

	"github.com/slashdash/sabe/internal/parser"
)

// CommandID names a canonical command, e.g. "analyze-data".
type CommandID string

// RiskTier orders command risk from Low (reversible, read-only) to Critical
// (irreversible, destructive). The zero value is Low.
type RiskTier int

const (
	RiskLow RiskTier = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskTier) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	}
	return "critical"
}

// ParseRiskTier converts a config/CLI string to a tier.
func ParseRiskTier(s string) (RiskTier, error) {
	switch s {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	case "critical":
		return RiskCritical, nil
	}
	return RiskCritical, fmt.Errorf("unknown risk tier %q", s)
}

// Synonym is one verb alias with its declared confidence weight (0..100).
type Synonym struct {
	Verb   string
	Weight int
}

// Spec describes one canonical command.
type Spec struct {
	ID          CommandID
	Description string
	Risk        RiskTier
	// Synonyms in declaration order. Order breaks confidence ties during
	// resolution, so it is part of the contract, not cosmetics.
	Synonyms []Synonym
	// InputKinds the command accepts. Empty means any.
	InputKinds []parser.InputKind
	// RequiresInput marks commands that cannot run without an @input.
	RequiresInput bool
	// ConfirmWord is the exact, case-sensitive token a user must type to
	// confirm a High/Critical command. Empty for lower tiers.
	ConfirmWord string
	// BaseTokens and Steps feed the default cost estimator.
	BaseTokens int
	Steps      int
}

// AcceptsKind reports whether the command takes the given input kind.
func (s *Spec) AcceptsKind(k parser.InputKind) bool {
	if len(s.InputKinds) == 0 {
		return true
	}
	for _, want := range s.InputKinds {
		if want == k {
			return true
		}
	}
	return false
}

// Registry is an immutable-after-construction command table.
type Registry struct {
	specs []*Spec
	byID  map[CommandID]*Spec
}

// New builds a registry from specs. Declaration order is preserved.
func New(specs []*Spec) (*Registry, error) {
	r := &Registry{byID: make(map[CommandID]*Spec, len(specs))}
	for _, s := range specs {
		if s.ID == "" {
			return nil, fmt.Errorf("registry: spec with empty id")
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate command %q", s.ID)
		}
		for _, syn := range s.Synonyms {
			if syn.Weight < 0 || syn.Weight > 100 {
				return nil, fmt.Errorf("registry: %s synonym %q weight %d out of range", s.ID, syn.Verb, syn.Weight)
			}
		}
		r.specs = append(r.specs, s)
		r.byID[s.ID] = s
	}
	return r, nil
}

// MustNew is New for static tables.
func MustNew(specs []*Spec) *Registry {
	r, err := New(specs)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the spec for id, or nil.
func (r *Registry) Lookup(id CommandID) *Spec {
	return r.byID[id]
}

// Specs returns the table in declaration order. Callers must not mutate.
func (r *Registry) Specs() []*Spec {
	return r.specs
}

// Len returns the number of canonical commands.
func (r *Registry) Len() int { return len(r.specs) }

// Classifier maps a command id to its risk tier.
type Classifier struct {
	reg *Registry
}

// NewClassifier wraps a registry for risk lookups.
func NewClassifier(reg *Registry) *Classifier {
	return &Classifier{reg: reg}
}

// Classify returns the tier for id. Unknown commands classify Critical: an
// id the table has never heard of must never slip past the gate.
func (c *Classifier) Classify(id CommandID) RiskTier {
	if s := c.reg.Lookup(id); s != nil {
		return s.Risk
	}
	return RiskCritical
}

// VerbIndex returns all declared synonym verbs sorted, for help output.
func (r *Registry) VerbIndex() []string {
	seen := map[string]bool{}
	var verbs []string
	for _, s := range r.specs {
		for _, syn := range s.Synonyms {
			if !seen[syn.Verb] {
				seen[syn.Verb] = true
				verbs = append(verbs, syn.Verb)
			}
		}
	}
	sort.Strings(verbs)
	return verbs
}
