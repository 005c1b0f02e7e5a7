package resolver

import (
	"testing"

	"github.com/slashdash/sabe/internal/registry"
)

func TestResolveExactSynonym(t *testing.T) {
	r := New(registry.Default())
	res := r.Resolve("inspect")
	if res.Command != "analyze-data" {
		t.Fatalf("command = %q, want analyze-data", res.Command)
	}
	if res.Confidence != 95 {
		t.Fatalf("confidence = %d, want declared weight 95", res.Confidence)
	}
	if res.Candidates[0].MatchedVerb != "inspect" {
		t.Fatalf("matched verb = %q", res.Candidates[0].MatchedVerb)
	}
}

func TestResolveCanonicalVerbDirect(t *testing.T) {
	r := New(registry.Default())
	for verb, want := range map[string]registry.CommandID{
		"analyze":   "analyze-data",
		"summarize": "summarize-doc",
		"deploy":    "deploy-site",
		"delete":    "delete-file",
		"search":    "search-content",
	} {
		res := r.Resolve(verb)
		if res.Command != want || res.Confidence != 100 {
			t.Fatalf("Resolve(%q) = %q/%d, want %q/100", verb, res.Command, res.Confidence, want)
		}
	}
}

func TestResolveCanonicalIDDirect(t *testing.T) {
	r := New(registry.Default())
	for _, id := range []registry.CommandID{"delete-file", "generate-site", "analyze-data"} {
		res := r.Resolve(string(id))
		if res.Command != id || res.Confidence != 100 {
			t.Fatalf("Resolve(%q) = %q/%d, want %q/100", id, res.Command, res.Confidence, id)
		}
		if res.Candidates[0].MatchedVerb != string(id) {
			t.Fatalf("matched verb = %q, want the id itself", res.Candidates[0].MatchedVerb)
		}
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := New(registry.Default())
	res := r.Resolve("  Inspect ")
	if res.Command != "analyze-data" || res.Confidence != 95 {
		t.Fatalf("Resolve(Inspect) = %q/%d", res.Command, res.Confidence)
	}
}

func TestResolveFuzzyPrefix(t *testing.T) {
	r := New(registry.Default())
	// "investig" is a prefix of "investigate" (weight 90): 90 * 8/11 * 0.7.
	res := r.Resolve("investig")
	if res.Command != "analyze-data" {
		t.Fatalf("command = %q", res.Command)
	}
	if res.Confidence < 30 || res.Confidence >= 90 {
		t.Fatalf("confidence = %d, want ambiguous band", res.Confidence)
	}
}

func TestResolveHyphenatedAmbiguous(t *testing.T) {
	r := New(registry.Default())
	res := r.Resolve("figure-out")
	if res.Command != "analyze-data" {
		t.Fatalf("command = %q, want analyze-data", res.Command)
	}
	if res.Confidence < 30 || res.Confidence >= 90 {
		t.Fatalf("confidence = %d, want in [30,90)", res.Confidence)
	}
}

func TestResolveNonsense(t *testing.T) {
	r := New(registry.Default())
	res := r.Resolve("zzzqqq")
	if res.Resolved() {
		t.Fatalf("nonsense verb resolved: %+v", res)
	}
	if res.Confidence != 0 {
		t.Fatalf("confidence = %d, want 0", res.Confidence)
	}
}

func TestResolveDeterministic(t *testing.T) {
	r := New(registry.Default())
	first := r.Resolve("examine")
	for i := 0; i < 20; i++ {
		again := r.Resolve("examine")
		if again.Command != first.Command || again.Confidence != first.Confidence ||
			len(again.Candidates) != len(first.Candidates) {
			t.Fatalf("resolution drifted: %+v vs %+v", again, first)
		}
	}
}

func TestResolveCandidateCapAndTies(t *testing.T) {
	specs := []*registry.Spec{
		{ID: "cmd-a", Synonyms: []registry.Synonym{{Verb: "go", Weight: 80}}},
		{ID: "cmd-b", Synonyms: []registry.Synonym{{Verb: "go", Weight: 80}}},
		{ID: "cmd-c", Synonyms: []registry.Synonym{{Verb: "go", Weight: 90}}},
		{ID: "cmd-d", Synonyms: []registry.Synonym{{Verb: "go", Weight: 70}}},
		{ID: "cmd-e", Synonyms: []registry.Synonym{{Verb: "go", Weight: 60}}},
		{ID: "cmd-f", Synonyms: []registry.Synonym{{Verb: "go", Weight: 50}}},
	}
	r := New(registry.MustNew(specs))
	res := r.Resolve("go")
	if len(res.Candidates) != 5 {
		t.Fatalf("candidates = %d, want cap of 5", len(res.Candidates))
	}
	if res.Candidates[0].Command != "cmd-c" {
		t.Fatalf("top candidate = %q, want cmd-c", res.Candidates[0].Command)
	}
	// Equal weights keep declaration order: cmd-a before cmd-b.
	if res.Candidates[1].Command != "cmd-a" || res.Candidates[2].Command != "cmd-b" {
		t.Fatalf("tie order = %q, %q; want cmd-a, cmd-b",
			res.Candidates[1].Command, res.Candidates[2].Command)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"analyze", "analyz", 1},
		{"deploy", "deploy", 0},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Fatalf("levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
