package gate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/slashdash/sabe/internal/hacks"
	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/registry"
	"github.com/slashdash/sabe/internal/resolver"
	"github.com/slashdash/sabe/internal/testutil"
)

type fakeResources struct {
	existing map[string]bool
	recent   []string
	err      error
	block    bool
}

func (f *fakeResources) Exists(ctx context.Context, ref parser.InputRef) (bool, error) {
	if f.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if f.err != nil {
		return false, f.err
	}
	return f.existing[ref.Identifier], nil
}

func (f *fakeResources) Recent(ctx context.Context, kind parser.InputKind, limit int) ([]string, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeEstimator struct {
	cost  Cost
	err   error
	block bool
}

func (f *fakeEstimator) Estimate(ctx context.Context, cmd *parser.Command, spec *registry.Spec) (Cost, error) {
	if f.block {
		<-ctx.Done()
		return Cost{}, ctx.Err()
	}
	if f.err != nil {
		return Cost{}, f.err
	}
	return f.cost, nil
}

func newTestGate(t *testing.T, reg *registry.Registry, opts ...Option) *Gate {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.TestLogger(t))}, opts...)
	return New(reg, opts...)
}

func submit(t *testing.T, g *Gate, reg *registry.Registry, line string) Decision {
	t.Helper()
	cmd, err := parser.Parse(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	res := resolver.New(reg).Resolve(cmd.Verb)
	return g.Evaluate(context.Background(), cmd, res)
}

func TestExecuteHappyPath(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{existing: map[string]bool{"sales.csv": true}}))

	d := submit(t, g, reg, "/analyze @file:sales.csv")
	if d.Kind != KindExecute {
		t.Fatalf("decision = %s (%+v), want execute", d.Kind, d)
	}
	if d.Execute.Command != "analyze-data" || d.Execute.Risk != registry.RiskLow {
		t.Fatalf("execution = %+v", d.Execute)
	}
}

func TestRejectUnresolvableVerb(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg)

	d := submit(t, g, reg, "/blorp")
	if d.Kind != KindReject {
		t.Fatalf("decision = %s, want reject", d.Kind)
	}
}

func TestDirectConfidenceNeverModeA(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{existing: map[string]bool{"x.csv": true}}))

	// "inspect" resolves at 95: above the direct threshold, so whatever the
	// gate does it must not be an ambiguity confirmation.
	d := submit(t, g, reg, "/inspect @file:x.csv")
	if d.Kind == KindConfirm && d.Confirm.Mode == ModeAmbiguous {
		t.Fatalf("confidence >= 90 produced mode A: %+v", d.Confirm)
	}
}

func TestModeAAmbiguousVerb(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{existing: map[string]bool{"sales.csv": true}}),
		WithInjector(hacks.NewInjector(nil)))

	d := submit(t, g, reg, "/figure-out @file:sales.csv")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeAmbiguous {
		t.Fatalf("decision = %+v, want mode A confirm", d)
	}
	if len(d.Confirm.Suggestions) == 0 {
		t.Fatalf("mode A confirmation carries no suggestions")
	}
	top := d.Confirm.Suggestions[0]
	if top.Command != "analyze-data" {
		t.Fatalf("top suggestion = %+v, want analyze-data", top)
	}
	if !strings.HasPrefix(top.Rebuilt, "/analyze-data @file:sales.csv") {
		t.Fatalf("rebuilt = %q", top.Rebuilt)
	}
	// Ambiguity recommends the clarify postscript.
	if len(d.Postscripts) != 1 || d.Postscripts[0].ID != "clarify" {
		t.Fatalf("postscripts = %+v", d.Postscripts)
	}
}

func TestModeBInvalidInput(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{
		existing: map[string]bool{},
		recent:   []string{"a.csv", "b.csv"},
	}))

	d := submit(t, g, reg, "/analyze @file:missing.csv")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeInvalidInput {
		t.Fatalf("decision = %+v, want mode B", d)
	}
	// Recent inputs become numbered repair options, plus a final free-form one.
	if len(d.Confirm.Suggestions) != 3 {
		t.Fatalf("suggestions = %+v", d.Confirm.Suggestions)
	}
}

func TestModeBUnknownKind(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg)

	d := submit(t, g, reg, "/analyze @blob:xyz")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeInvalidInput {
		t.Fatalf("decision = %+v, want mode B", d)
	}
}

func TestModeBWrongKindForCommand(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{existing: map[string]bool{"prod": true}}))

	// analyze-data does not take @site inputs.
	d := submit(t, g, reg, "/analyze @site:prod")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeInvalidInput {
		t.Fatalf("decision = %+v, want mode B", d)
	}
}

func TestModeBPrecedesModeD(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{existing: map[string]bool{}}))

	// delete-file is Critical, but the broken input is reported first.
	d := submit(t, g, reg, "/delete @file:gone.txt")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeInvalidInput {
		t.Fatalf("decision = %+v, want mode B before mode D", d)
	}
}

func TestModeBOnResolverTimeout(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg,
		WithResources(&fakeResources{block: true}),
		WithCollaboratorTimeout(10*time.Millisecond))

	d := submit(t, g, reg, "/analyze @file:slow.csv")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeInvalidInput {
		t.Fatalf("decision = %+v, want mode B on timeout", d)
	}
}

func TestModeEMissingInput(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithResources(&fakeResources{recent: []string{"notes.md"}}))

	d := submit(t, g, reg, "/summarize")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeMissingInput {
		t.Fatalf("decision = %+v, want mode E", d)
	}
	if got := d.Confirm.Suggestions[0].Rebuilt; !strings.Contains(got, "@file:notes.md") {
		t.Fatalf("suggestion = %q", got)
	}
}

func TestModeEPrecedesModeD(t *testing.T) {
	reg := testutil.FixtureRegistry()
	g := newTestGate(t, reg)

	// wipe-thing is Critical and requires input; missing input wins.
	d := submit(t, g, reg, "/wipe")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeMissingInput {
		t.Fatalf("decision = %+v, want mode E before mode D", d)
	}
}

func TestModeDHighRisk(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg,
		WithResources(&fakeResources{existing: map[string]bool{"old.log": true}}),
		WithInjector(hacks.NewInjector(nil)))

	d := submit(t, g, reg, "/delete @file:old.log")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeHighRisk {
		t.Fatalf("decision = %+v, want mode D", d)
	}
	if d.Confirm.ConfirmWord != "DELETE" {
		t.Fatalf("confirm word = %q", d.Confirm.ConfirmWord)
	}
	if len(d.Postscripts) != 1 || d.Postscripts[0].ID != "devils_advocate" {
		t.Fatalf("postscripts = %+v", d.Postscripts)
	}
}

func TestModeCLargeTask(t *testing.T) {
	reg := testutil.FixtureRegistry()
	g := newTestGate(t, reg, WithInjector(hacks.NewInjector(nil)))

	// churn-thing estimates 90000 tokens and 8 steps.
	d := submit(t, g, reg, "/churn")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeLargeTask {
		t.Fatalf("decision = %+v, want mode C", d)
	}
	// A large task recommends every enabled hack.
	if len(d.Postscripts) != 4 {
		t.Fatalf("postscripts = %d, want all 4 enabled hacks", len(d.Postscripts))
	}
}

func TestModeCOnEstimatorFailure(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithEstimator(&fakeEstimator{err: errors.New("backend down")}))

	d := submit(t, g, reg, "/list")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeLargeTask {
		t.Fatalf("decision = %+v, want mode C on unknown cost", d)
	}
}

func TestModeCOnEstimatorTimeout(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg,
		WithEstimator(&fakeEstimator{block: true}),
		WithCollaboratorTimeout(10*time.Millisecond))

	d := submit(t, g, reg, "/list")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeLargeTask {
		t.Fatalf("decision = %+v, want mode C on timeout", d)
	}
}

func TestCostLimitOverrides(t *testing.T) {
	reg := registry.Default()
	g := newTestGate(t, reg, WithCostLimits(100, 1))

	// list-files estimates 300 tokens, above the lowered ceiling.
	d := submit(t, g, reg, "/list")
	if d.Kind != KindConfirm || d.Confirm.Mode != ModeLargeTask {
		t.Fatalf("decision = %+v, want mode C under tight limits", d)
	}
}
