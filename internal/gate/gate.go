// Package gate implements the confirmation protocol that stands between a
// resolved command and its execution. Every submission ends in one of three
// verdicts: execute, confirm (held pending a user answer), or reject.
//
// Guards are checked in a fixed precedence: invalid input, missing input,
// ambiguous verb, high risk, large task. An unresolvable verb is rejected
// before any guard runs.
package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/slashdash/sabe/internal/hacks"
	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/registry"
	"github.com/slashdash/sabe/internal/resolver"
)

// Defaults for thresholds and limits, overridable per Gate.
const (
	DefaultDirectThreshold     = 90
	DefaultRejectThreshold     = 30
	DefaultMaxTokens           = 50000
	DefaultMaxSteps            = 5
	DefaultConfirmTTL          = 2 * time.Minute
	DefaultCollaboratorTimeout = 500 * time.Millisecond
)

// Gate evaluates resolved commands against the confirmation guards.
type Gate struct {
	reg        *registry.Registry
	classifier *registry.Classifier
	resources  ResourceResolver
	estimator  CostEstimator
	injector   HackInjector

	directThreshold int
	rejectThreshold int
	maxTokens       int
	maxSteps        int
	ttl             time.Duration
	timeout         time.Duration

	clock  func() time.Time
	logger *log.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithResources wires the resource resolver used by the input guards.
func WithResources(r ResourceResolver) Option {
	return func(g *Gate) { g.resources = r }
}

// WithEstimator wires the cost estimator used by the large-task guard.
func WithEstimator(e CostEstimator) Option {
	return func(g *Gate) { g.estimator = e }
}

// WithInjector wires the hack injector that decorates confirmations.
func WithInjector(in HackInjector) Option {
	return func(g *Gate) { g.injector = in }
}

// WithThresholds overrides the direct and reject confidence thresholds.
func WithThresholds(direct, rejectBelow int) Option {
	return func(g *Gate) {
		g.directThreshold = direct
		g.rejectThreshold = rejectBelow
	}
}

// WithCostLimits overrides the large-task token and step limits.
func WithCostLimits(maxTokens, maxSteps int) Option {
	return func(g *Gate) {
		g.maxTokens = maxTokens
		g.maxSteps = maxSteps
	}
}

// WithTTL overrides how long a confirmation stays answerable.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) { g.ttl = ttl }
}

// WithCollaboratorTimeout overrides the per-call budget for collaborators.
func WithCollaboratorTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Gate) { g.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// New builds a gate over the given command table.
func New(reg *registry.Registry, opts ...Option) *Gate {
	g := &Gate{
		reg:             reg,
		classifier:      registry.NewClassifier(reg),
		resources:       nopResources{},
		estimator:       StaticCostEstimator{},
		injector:        nopInjector{},
		directThreshold: DefaultDirectThreshold,
		rejectThreshold: DefaultRejectThreshold,
		maxTokens:       DefaultMaxTokens,
		maxSteps:        DefaultMaxSteps,
		ttl:             DefaultConfirmTTL,
		timeout:         DefaultCollaboratorTimeout,
		clock:           time.Now,
		logger:          log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TTL returns the confirmation time-to-live.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Now returns the gate's current time.
func (g *Gate) Now() time.Time { return g.clock() }

// Evaluate runs a parsed, resolved command through the guards and returns
// the verdict. It never returns an error: every failure path is a verdict.
func (g *Gate) Evaluate(ctx context.Context, cmd *parser.Command, res resolver.Resolution) Decision {
	if res.Confidence < g.rejectThreshold {
		g.logger.Debug("rejecting unresolvable verb", "verb", cmd.Verb, "confidence", res.Confidence)
		return reject(fmt.Sprintf("cannot map %q to any known command (confidence %d)", cmd.Verb, res.Confidence))
	}

	spec := g.reg.Lookup(res.Command)
	if spec == nil {
		// A resolution above the reject threshold always names a table
		// entry; a missing one means the table changed underneath us.
		return reject(fmt.Sprintf("resolved command %q is not in the table", res.Command))
	}
	risk := g.classifier.Classify(res.Command)

	if cmd.Input != nil {
		if reason, invalid := g.inputInvalid(ctx, cmd.Input, spec); invalid {
			return g.confirmWith(cmd, res, ModeInvalidInput, reason, g.repairSuggestions(ctx, cmd, spec), "")
		}
	}

	if spec.RequiresInput && cmd.Input == nil {
		reason := fmt.Sprintf("%s requires an input and none was given", spec.ID)
		return g.confirmWith(cmd, res, ModeMissingInput, reason, g.repairSuggestions(ctx, cmd, spec), "")
	}

	if res.Confidence < g.directThreshold {
		reason := fmt.Sprintf("verb %q maps to %s with confidence %d; below %d",
			cmd.Verb, res.Command, res.Confidence, g.directThreshold)
		return g.confirmWith(cmd, res, ModeAmbiguous, reason, g.candidateSuggestions(cmd, res), "")
	}

	if risk >= registry.RiskHigh {
		word := spec.ConfirmWord
		if word == "" {
			word = "CONFIRM"
		}
		reason := fmt.Sprintf("%s is a %s-risk, irreversible operation", spec.ID, risk)
		return g.confirmWith(cmd, res, ModeHighRisk, reason, nil, word)
	}

	cost, known := g.estimateCost(ctx, cmd, spec)
	if !known {
		return g.confirmWith(cmd, res, ModeLargeTask, "task cost could not be estimated", nil, "")
	}
	if cost.Tokens > g.maxTokens || cost.Steps > g.maxSteps {
		reason := fmt.Sprintf("large task: ~%d tokens, %d steps (limits %d / %d)",
			cost.Tokens, cost.Steps, g.maxTokens, g.maxSteps)
		return g.confirmWith(cmd, res, ModeLargeTask, reason, nil, "")
	}

	return execute(cmd, res, risk)
}

func (g *Gate) confirmWith(cmd *parser.Command, res resolver.Resolution, mode Mode, reason string, suggestions []Suggestion, word string) Decision {
	d := confirm(&Confirmation{
		Mode:        mode,
		Reason:      reason,
		Suggestions: suggestions,
		ConfirmWord: word,
		ExpiresAt:   g.clock().Add(g.ttl),
	})
	d.Postscripts = g.injector.RecommendFor(hacks.Mode(mode))
	d.Held = g.Hold(cmd, res, d.Confirm)
	g.logger.Debug("holding command for confirmation", "mode", mode, "reason", reason)
	return d
}

// inputInvalid reports whether the reference fails validation and why.
// A resolver timeout counts as invalid: the gate never executes on an
// unverified reference.
func (g *Gate) inputInvalid(ctx context.Context, ref *parser.InputRef, spec *registry.Spec) (string, bool) {
	if ref.Kind == parser.KindUnknown {
		return fmt.Sprintf("input %q has an unrecognized kind", ref.Raw), true
	}
	if !spec.AcceptsKind(ref.Kind) {
		return fmt.Sprintf("%s does not accept %s inputs", spec.ID, ref.Kind), true
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	exists, err := g.resources.Exists(cctx, *ref)
	if err != nil {
		g.logger.Warn("resource check failed", "ref", ref.Raw, "err", err)
		return fmt.Sprintf("could not verify input %q", ref.Raw), true
	}
	if !exists {
		return fmt.Sprintf("input %q does not exist", ref.Raw), true
	}
	return "", false
}

// estimateCost runs the estimator under its timeout. known is false when
// the estimate failed or timed out.
func (g *Gate) estimateCost(ctx context.Context, cmd *parser.Command, spec *registry.Spec) (Cost, bool) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	cost, err := g.estimator.Estimate(cctx, cmd, spec)
	if err != nil {
		g.logger.Warn("cost estimate failed", "command", spec.ID, "err", err)
		return Cost{}, false
	}
	return cost, true
}

// candidateSuggestions rebuilds each resolver candidate as a full command
// line the user can pick by number.
func (g *Gate) candidateSuggestions(cmd *parser.Command, res resolver.Resolution) []Suggestion {
	var out []Suggestion
	for i, c := range res.Candidates {
		spec := g.reg.Lookup(c.Command)
		desc := string(c.Command)
		if spec != nil {
			desc = spec.Description
		}
		out = append(out, Suggestion{
			Index:       i + 1,
			Command:     c.Command,
			Rebuilt:     rebuild(c.Command, cmd),
			Description: desc,
			Confidence:  c.Confidence,
		})
	}
	return out
}

// repairSuggestions offers recently used inputs of an accepted kind, plus
// an explicit option to supply something new.
func (g *Gate) repairSuggestions(ctx context.Context, cmd *parser.Command, spec *registry.Spec) []Suggestion {
	kind := parser.KindFile
	if len(spec.InputKinds) > 0 {
		kind = spec.InputKinds[0]
	}
	if cmd.Input != nil && cmd.Input.Kind != parser.KindUnknown {
		kind = cmd.Input.Kind
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	recent, err := g.resources.Recent(cctx, kind, 3)
	if err != nil {
		g.logger.Warn("recent input lookup failed", "kind", kind, "err", err)
		recent = nil
	}

	var out []Suggestion
	for i, ident := range recent {
		patched := *cmd
		patched.Input = &parser.InputRef{Kind: kind, Identifier: ident}
		out = append(out, Suggestion{
			Index:       i + 1,
			Command:     spec.ID,
			Rebuilt:     rebuild(spec.ID, &patched),
			Description: fmt.Sprintf("use recent %s: %s", kind, ident),
		})
	}
	out = append(out, Suggestion{
		Index:       len(out) + 1,
		Rebuilt:     "",
		Description: "provide a different input",
	})
	return out
}

// rebuild renders a full command line for a command id using the original
// submission's input and parameters.
func rebuild(id registry.CommandID, cmd *parser.Command) string {
	var b strings.Builder
	b.WriteString("/" + string(id))
	if cmd.Input != nil {
		b.WriteString(" " + cmd.Input.String())
	}
	for _, p := range cmd.Params {
		if p.Value == "true" {
			b.WriteString(" --" + p.Key)
			continue
		}
		b.WriteString(" --" + p.Key + " " + p.Value)
	}
	return b.String()
}
