package gate

import (
	"time"

	"github.com/slashdash/sabe/internal/hacks"
	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/registry"
	"github.com/slashdash/sabe/internal/resolver"
)

// Mode is the confirmation mode presented to the user.
type Mode string

const (
	// ModeAmbiguous repairs a verb that maps to no command with certainty.
	ModeAmbiguous Mode = "A"
	// ModeInvalidInput recovers from an input reference that does not resolve.
	ModeInvalidInput Mode = "B"
	// ModeLargeTask confirms work estimated past the token or step budget.
	ModeLargeTask Mode = "C"
	// ModeHighRisk confirms an irreversible command with an exact typed word.
	ModeHighRisk Mode = "D"
	// ModeMissingInput asks for the input a command requires but did not get.
	ModeMissingInput Mode = "E"
)

// Title returns the human name of the mode.
func (m Mode) Title() string {
	switch m {
	case ModeAmbiguous:
		return "ambiguous command repair"
	case ModeInvalidInput:
		return "input recovery"
	case ModeLargeTask:
		return "large task confirmation"
	case ModeHighRisk:
		return "high risk confirmation"
	case ModeMissingInput:
		return "missing input"
	}
	return "unknown"
}

// DecisionKind discriminates the gate's verdicts.
type DecisionKind int

const (
	// KindExecute releases the command immediately.
	KindExecute DecisionKind = iota
	// KindConfirm holds the command pending a user response.
	KindConfirm
	// KindReject refuses the command and returns the session to idle.
	KindReject
)

func (k DecisionKind) String() string {
	switch k {
	case KindExecute:
		return "execute"
	case KindConfirm:
		return "confirm"
	case KindReject:
		return "reject"
	}
	return "unknown"
}

// Suggestion is one numbered option offered with a confirmation.
type Suggestion struct {
	Index       int                `json:"index"`
	Command     registry.CommandID `json:"command,omitempty"`
	Rebuilt     string             `json:"rebuilt"`
	Description string             `json:"description"`
	Confidence  int                `json:"confidence,omitempty"`
}

// Execution carries everything needed to run a released command.
type Execution struct {
	Command    registry.CommandID  `json:"command"`
	Cmd        *parser.Command     `json:"cmd"`
	Resolution resolver.Resolution `json:"resolution"`
	Risk       registry.RiskTier   `json:"risk"`
}

// Confirmation is a held command awaiting the user's answer.
type Confirmation struct {
	Mode        Mode         `json:"mode"`
	Reason      string       `json:"reason"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	// ConfirmWord is required verbatim for ModeHighRisk.
	ConfirmWord string    `json:"confirm_word,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Rejection refuses a command.
type Rejection struct {
	Reason string `json:"reason"`
}

// Decision is the gate's verdict on one submission. Exactly one of the
// three payloads is set, matching Kind. Postscripts are advisory prompt
// additions from the hack injector; they never change the verdict.
type Decision struct {
	Kind        DecisionKind  `json:"kind"`
	Execute     *Execution    `json:"execute,omitempty"`
	Confirm     *Confirmation `json:"confirm,omitempty"`
	Reject      *Rejection    `json:"reject,omitempty"`
	Postscripts []hacks.Hack  `json:"postscripts,omitempty"`

	// Held is the full pending state behind a confirm verdict, for callers
	// that persist confirmations across processes. Nil unless Kind is
	// KindConfirm.
	Held *Pending `json:"-"`
}

func execute(cmd *parser.Command, res resolver.Resolution, risk registry.RiskTier) Decision {
	return Decision{Kind: KindExecute, Execute: &Execution{
		Command:    res.Command,
		Cmd:        cmd,
		Resolution: res,
		Risk:       risk,
	}}
}

func confirm(c *Confirmation) Decision {
	return Decision{Kind: KindConfirm, Confirm: c}
}

func reject(reason string) Decision {
	return Decision{Kind: KindReject, Reject: &Rejection{Reason: reason}}
}
