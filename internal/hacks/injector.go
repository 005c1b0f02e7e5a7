package hacks

import "sort"

// Mode mirrors the gate's confirmation modes for recommendation lookups,
// kept as a plain string to avoid an import cycle with the gate package.
type Mode string

const (
	ModeAmbiguous Mode = "A"
	ModeInvalid   Mode = "B"
	ModeLargeTask Mode = "C"
	ModeHighRisk  Mode = "D"
	ModeMissing   Mode = "E"
)

// Injector tracks which milestones have fired and hands out postscripts.
// It is single-session state, not safe for concurrent use, same as the
// session that owns it.
type Injector struct {
	set      []Hack
	injected map[int]bool
}

// NewInjector builds an injector over set; nil set means Defaults().
func NewInjector(set []Hack) *Injector {
	if set == nil {
		set = Defaults()
	}
	return &Injector{set: set, injected: make(map[int]bool)}
}

// Set returns the full hack table in milestone order.
func (in *Injector) Set() []Hack {
	out := make([]Hack, len(in.set))
	copy(out, in.set)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Milestone < out[j].Milestone })
	return out
}

// Enable flips a hack's enabled flag. Unknown ids are ignored.
func (in *Injector) Enable(id string, enabled bool) {
	for i := range in.set {
		if in.set[i].ID == id {
			in.set[i].Enabled = enabled
			return
		}
	}
}

// HacksFor returns the enabled hacks whose milestone is reached at the given
// progress percentage and that have not fired yet, marking them fired.
// Pure table lookup otherwise: same progress twice returns nothing new.
func (in *Injector) HacksFor(progress int) []Hack {
	var due []Hack
	for _, h := range in.set {
		if !h.Enabled || in.injected[h.Milestone] {
			continue
		}
		if progress >= h.Milestone {
			in.injected[h.Milestone] = true
			due = append(due, h)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Milestone < due[j].Milestone })
	return due
}

// Peek is HacksFor without marking anything fired.
func (in *Injector) Peek(progress int) []Hack {
	var due []Hack
	for _, h := range in.set {
		if !h.Enabled || in.injected[h.Milestone] {
			continue
		}
		if progress >= h.Milestone {
			due = append(due, h)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Milestone < due[j].Milestone })
	return due
}

// Reset clears fired state for a new task.
func (in *Injector) Reset() {
	in.injected = make(map[int]bool)
}

// RecommendFor returns the hacks worth attaching to a confirmation in the
// given mode: ambiguity wants clarification, a large task wants the full
// enabled set, a high-risk command wants the devil's advocate critique.
func (in *Injector) RecommendFor(mode Mode) []Hack {
	switch mode {
	case ModeAmbiguous:
		if h := ByID(in.set, "clarify"); h != nil && h.Enabled {
			return []Hack{*h}
		}
	case ModeLargeTask:
		var all []Hack
		for _, h := range in.set {
			if h.Enabled {
				all = append(all, h)
			}
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].Milestone < all[j].Milestone })
		return all
	case ModeHighRisk:
		if h := ByID(in.set, "devils_advocate"); h != nil && h.Enabled {
			return []Hack{*h}
		}
	}
	return nil
}
