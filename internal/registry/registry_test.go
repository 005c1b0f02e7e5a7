package registry

import (
	"testing"

	"github.com/slashdash/sabe/internal/parser"
)

func TestDefaultTable(t *testing.T) {
	reg := Default()
	if reg.Len() != 8 {
		t.Fatalf("default table has %d commands, want 8", reg.Len())
	}
	for _, id := range []CommandID{
		"analyze-data", "summarize-doc", "convert-file", "generate-site",
		"deploy-site", "delete-file", "list-files", "search-content",
	} {
		spec := reg.Lookup(id)
		if spec == nil {
			t.Fatalf("missing command %q", id)
		}
		if len(spec.Synonyms) == 0 {
			t.Fatalf("%s has no synonyms", id)
		}
		if spec.Synonyms[0].Weight != 100 {
			t.Fatalf("%s canonical verb weight = %d, want 100", id, spec.Synonyms[0].Weight)
		}
	}
}

func TestConfirmWords(t *testing.T) {
	reg := Default()
	if w := reg.Lookup("delete-file").ConfirmWord; w != "DELETE" {
		t.Fatalf("delete-file confirm word = %q", w)
	}
	if w := reg.Lookup("deploy-site").ConfirmWord; w != "DEPLOY" {
		t.Fatalf("deploy-site confirm word = %q", w)
	}
	if w := reg.Lookup("analyze-data").ConfirmWord; w != "" {
		t.Fatalf("analyze-data should have no confirm word, got %q", w)
	}
}

func TestClassifyUnknownIsCritical(t *testing.T) {
	c := NewClassifier(Default())
	if got := c.Classify("no-such-command"); got != RiskCritical {
		t.Fatalf("unknown command classified %v, want critical", got)
	}
	if got := c.Classify("list-files"); got != RiskLow {
		t.Fatalf("list-files classified %v, want low", got)
	}
	if got := c.Classify("deploy-site"); got != RiskHigh {
		t.Fatalf("deploy-site classified %v, want high", got)
	}
}

func TestNewRejectsBadTables(t *testing.T) {
	if _, err := New([]*Spec{{ID: ""}}); err == nil {
		t.Fatalf("empty id accepted")
	}
	if _, err := New([]*Spec{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Fatalf("duplicate id accepted")
	}
	if _, err := New([]*Spec{{ID: "a", Synonyms: []Synonym{{"x", 101}}}}); err == nil {
		t.Fatalf("out of range weight accepted")
	}
}

func TestAcceptsKind(t *testing.T) {
	spec := Default().Lookup("analyze-data")
	if !spec.AcceptsKind(parser.KindFile) {
		t.Fatalf("analyze-data should accept file input")
	}
	if spec.AcceptsKind(parser.KindSite) {
		t.Fatalf("analyze-data should not accept site input")
	}
	anyKind := &Spec{ID: "x"}
	if !anyKind.AcceptsKind(parser.KindURL) {
		t.Fatalf("empty InputKinds should accept anything")
	}
}

func TestParseRiskTier(t *testing.T) {
	for s, want := range map[string]RiskTier{
		"low": RiskLow, "medium": RiskMedium, "high": RiskHigh, "critical": RiskCritical,
	} {
		got, err := ParseRiskTier(s)
		if err != nil || got != want {
			t.Fatalf("ParseRiskTier(%q) = %v, %v", s, got, err)
		}
		if got.String() != s {
			t.Fatalf("round trip %q -> %q", s, got.String())
		}
	}
	if _, err := ParseRiskTier("extreme"); err == nil {
		t.Fatalf("bad tier accepted")
	}
}
