package gate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/registry"
	"github.com/slashdash/sabe/internal/resolver"
)

// Pending is a held confirmation: the original submission plus what the
// user was asked. A session carries at most one.
type Pending struct {
	Mode        Mode                `json:"mode"`
	Cmd         *parser.Command     `json:"cmd"`
	Resolution  resolver.Resolution `json:"resolution"`
	Risk        registry.RiskTier   `json:"risk"`
	Suggestions []Suggestion        `json:"suggestions,omitempty"`
	ConfirmWord string              `json:"confirm_word,omitempty"`
	Reason      string              `json:"reason"`
	CreatedAt   time.Time           `json:"created_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// Hold builds the pending record for a confirm decision.
func (g *Gate) Hold(cmd *parser.Command, res resolver.Resolution, c *Confirmation) *Pending {
	return &Pending{
		Mode:        c.Mode,
		Cmd:         cmd,
		Resolution:  res,
		Risk:        g.classifier.Classify(res.Command),
		Suggestions: c.Suggestions,
		ConfirmWord: c.ConfirmWord,
		Reason:      c.Reason,
		CreatedAt:   g.clock(),
		ExpiresAt:   c.ExpiresAt,
	}
}

// Expired reports whether the pending confirmation's TTL has passed.
// Expiry is checked lazily, at the next interaction; nothing fires on a
// timer.
func (g *Gate) Expired(p *Pending) bool {
	return p != nil && g.clock().After(p.ExpiresAt)
}

// Respond applies the user's answer to a pending confirmation.
//
// The grammar:
//   - n / no / cancel (any case) rejects.
//   - An integer selects that suggestion; the selected command re-enters
//     the guards at full confidence, so a risky pick still confirms.
//   - In ModeHighRisk only the exact, case-sensitive confirm word
//     executes; any other answer rejects.
//   - y / yes (any case, modes other than D) executes the held command.
//   - Anything else re-issues the same confirmation.
//
// A leading "/" is the session's business: it resubmits a fresh command
// and never reaches this method.
func (g *Gate) Respond(ctx context.Context, p *Pending, answer string) Decision {
	a := strings.TrimSpace(answer)
	lower := strings.ToLower(a)

	switch lower {
	case "n", "no", "cancel":
		return reject("cancelled by user")
	}

	if idx, err := strconv.Atoi(a); err == nil {
		return g.selectSuggestion(ctx, p, idx)
	}

	if p.Mode == ModeHighRisk {
		if a == p.ConfirmWord {
			g.logger.Info("high-risk command confirmed", "command", p.Resolution.Command)
			return execute(p.Cmd, p.Resolution, p.Risk)
		}
		g.logger.Info("high-risk confirmation mismatch", "command", p.Resolution.Command)
		return reject("confirmation word did not match; command cancelled")
	}

	switch lower {
	case "y", "yes":
		return execute(p.Cmd, p.Resolution, p.Risk)
	}

	return g.reissue(p)
}

// selectSuggestion routes a numbered pick. Suggestions that name a command
// re-enter Evaluate pinned to that command; bare options (like "provide a
// different input") cannot execute and re-issue the prompt.
func (g *Gate) selectSuggestion(ctx context.Context, p *Pending, idx int) Decision {
	if idx < 1 || idx > len(p.Suggestions) {
		return g.reissue(p)
	}
	s := p.Suggestions[idx-1]
	if s.Command == "" {
		return g.reissue(p)
	}

	cmd := p.Cmd
	if s.Rebuilt != "" {
		if parsed, err := parser.Parse(s.Rebuilt); err == nil {
			cmd = parsed
		}
	}
	pinned := resolver.Resolution{
		Verb:       cmd.Verb,
		Command:    s.Command,
		Confidence: 100,
		Candidates: []resolver.Candidate{{Command: s.Command, Confidence: 100, MatchedVerb: cmd.Verb}},
	}
	return g.Evaluate(ctx, cmd, pinned)
}

// reissue re-presents the same confirmation with a fresh TTL.
func (g *Gate) reissue(p *Pending) Decision {
	d := confirm(&Confirmation{
		Mode:        p.Mode,
		Reason:      p.Reason,
		Suggestions: p.Suggestions,
		ConfirmWord: p.ConfirmWord,
		ExpiresAt:   g.clock().Add(g.ttl),
	})
	held := *p
	held.ExpiresAt = d.Confirm.ExpiresAt
	d.Held = &held
	return d
}
