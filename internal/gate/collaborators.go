package gate

import (
	"context"

	"github.com/slashdash/sabe/internal/hacks"
	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/registry"
)

// ResourceResolver answers whether an input reference points at something
// real, and what the user touched recently for repair suggestions.
//
// Both calls run under the gate's per-call timeout; a resolver that blocks
// past it is treated as unable to validate the input.
type ResourceResolver interface {
	Exists(ctx context.Context, ref parser.InputRef) (bool, error)
	Recent(ctx context.Context, kind parser.InputKind, limit int) ([]string, error)
}

// Cost is an estimate of the work a command implies.
type Cost struct {
	Tokens int `json:"tokens"`
	Steps  int `json:"steps"`
}

// CostEstimator predicts the cost of running a command. An error or a
// timeout means the cost is unknown, which the gate treats as large.
type CostEstimator interface {
	Estimate(ctx context.Context, cmd *parser.Command, spec *registry.Spec) (Cost, error)
}

// HackInjector supplies advisory postscripts for confirmations.
type HackInjector interface {
	RecommendFor(mode hacks.Mode) []hacks.Hack
}

// StaticCostEstimator estimates from the registry's base figures: tokens
// scale 10% per parameter, steps come straight from the spec.
type StaticCostEstimator struct{}

func (StaticCostEstimator) Estimate(_ context.Context, cmd *parser.Command, spec *registry.Spec) (Cost, error) {
	tokens := spec.BaseTokens
	tokens += tokens * len(cmd.Params) / 10
	return Cost{Tokens: tokens, Steps: spec.Steps}, nil
}

// nopResources is used when no resource resolver is wired: every reference
// is taken at face value and no suggestions are offered.
type nopResources struct{}

func (nopResources) Exists(context.Context, parser.InputRef) (bool, error) { return true, nil }
func (nopResources) Recent(context.Context, parser.InputKind, int) ([]string, error) {
	return nil, nil
}

// nopInjector recommends nothing.
type nopInjector struct{}

func (nopInjector) RecommendFor(hacks.Mode) []hacks.Hack { return nil }
