// Package resolver maps a free-form verb onto a canonical command via the
// registry's weighted synonym table. Resolution is pure and deterministic:
// the same verb against the same table always produces the same result.
package resolver

import (
	"strings"

	"github.com/slashdash/sabe/internal/registry"
)

// Candidate is one scored mapping from the input verb to a command.
type Candidate struct {
	Command    registry.CommandID `json:"command"`
	Confidence int                `json:"confidence"`
	// MatchedVerb is the synonym that produced the score.
	MatchedVerb string `json:"matched_verb"`
}

// Resolution is the outcome of resolving one verb.
//
// Confidence bands: >= 90 resolves directly, 30..89 is ambiguous and needs
// confirmation, < 30 is unresolved.
type Resolution struct {
	Verb       string             `json:"verb"`
	Command    registry.CommandID `json:"command"`
	Confidence int                `json:"confidence"`
	// Candidates holds up to five scored mappings in descending confidence,
	// ties broken by table declaration order. Candidates[0] mirrors
	// Command/Confidence when any match exists.
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Resolved reports whether any candidate scored above zero.
func (r Resolution) Resolved() bool { return len(r.Candidates) > 0 }

// Resolver scores verbs against one registry table.
type Resolver struct {
	reg *registry.Registry
}

// New returns a resolver over the given table.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

const maxCandidates = 5

// Resolve scores verb against every command and returns the ranked result.
func (r *Resolver) Resolve(verb string) Resolution {
	v := strings.ToLower(strings.TrimSpace(verb))
	res := Resolution{Verb: v}
	if v == "" {
		return res
	}

	// Score in declaration order; a stable insertion sort keeps declaration
	// order as the tiebreak for equal confidence.
	var ranked []Candidate
	for _, spec := range r.reg.Specs() {
		c, matched := scoreCommand(v, spec)
		if c <= 0 {
			continue
		}
		ranked = insertRanked(ranked, Candidate{Command: spec.ID, Confidence: c, MatchedVerb: matched})
	}
	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	res.Candidates = ranked
	if len(ranked) > 0 {
		res.Command = ranked[0].Command
		res.Confidence = ranked[0].Confidence
	}
	return res
}

// insertRanked inserts c keeping strictly-descending confidence with
// first-inserted-wins on ties.
func insertRanked(ranked []Candidate, c Candidate) []Candidate {
	i := 0
	for i < len(ranked) && ranked[i].Confidence >= c.Confidence {
		i++
	}
	ranked = append(ranked, Candidate{})
	copy(ranked[i+1:], ranked[i:])
	ranked[i] = c
	return ranked
}

// scoreCommand returns the best confidence the verb earns against one
// command's synonyms, and which synonym produced it.
func scoreCommand(verb string, spec *registry.Spec) (int, string) {
	// The canonical id is always a direct match: typing the command by its
	// full name must never rank below its own synonyms.
	if verb == string(spec.ID) {
		return 100, verb
	}
	// Exact match short-circuits at the declared weight.
	for _, syn := range spec.Synonyms {
		if verb == syn.Verb {
			return syn.Weight, syn.Verb
		}
	}

	best := 0.0
	matched := ""
	for _, syn := range spec.Synonyms {
		if s := fuzzyScore(verb, syn.Verb, syn.Weight); s > best {
			best = s
			matched = syn.Verb
		}
	}
	return int(best), matched
}

// fuzzyScore blends two signals: prefix containment (one string starts with
// the other, discounted 30%) and normalized Levenshtein similarity above a
// 0.7 floor (discounted 40%). The higher signal wins.
func fuzzyScore(verb, synonym string, weight int) float64 {
	w := float64(weight)
	best := 0.0

	if strings.HasPrefix(synonym, verb) || strings.HasPrefix(verb, synonym) {
		shorter, longer := len(verb), len(synonym)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		ratio := float64(shorter) / float64(longer)
		if s := w * ratio * 0.7; s > best {
			best = s
		}
	}

	maxLen := len(verb)
	if len(synonym) > maxLen {
		maxLen = len(synonym)
	}
	if maxLen > 0 {
		sim := 1 - float64(levenshtein(verb, synonym))/float64(maxLen)
		if sim > 0.7 {
			if s := w * sim * 0.6; s > best {
				best = s
			}
		}
	}
	return best
}

// levenshtein computes the edit distance with a rolling single row.
func levenshtein(a, b string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 0; i < len(a); i++ {
		curr[0] = i + 1
		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}
			curr[j+1] = min3(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
