// Package session wires the pipeline together for one logical session:
// parse, resolve, gate, execute, record. A session carries at most one
// pending confirmation, persisted in the state database so one-shot CLI
// invocations keep gate state across processes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/gate"
	"github.com/slashdash/sabe/internal/hacks"
	"github.com/slashdash/sabe/internal/ledger"
	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/registry"
	"github.com/slashdash/sabe/internal/resolver"
	"github.com/slashdash/sabe/internal/utils"
)

// OutcomeKind discriminates what a submission produced.
type OutcomeKind string

const (
	// OutcomeExecuted means the command ran and was recorded in the ledger.
	OutcomeExecuted OutcomeKind = "executed"
	// OutcomePending means a confirmation is now awaiting the user's answer.
	OutcomePending OutcomeKind = "pending"
	// OutcomeRejected means the submission was refused; the session is idle.
	OutcomeRejected OutcomeKind = "rejected"
)

// Outcome is what one submitted line produced.
type Outcome struct {
	Kind         OutcomeKind        `json:"kind"`
	Command      registry.CommandID `json:"command,omitempty"`
	Seq          int64              `json:"seq,omitempty"`
	Summary      string             `json:"summary,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Confirmation *gate.Confirmation `json:"confirmation,omitempty"`
	Postscripts  []hacks.Hack       `json:"postscripts,omitempty"`
}

// ExecResult is what an executor hands back: the applied change and its
// reversal, both opaque to the session, plus a one-line summary.
type ExecResult struct {
	ForwardDelta string
	InverseDelta string
	Summary      string
}

// Executor runs a released command. Implementations own the side effects;
// the session only records the deltas they report.
type Executor interface {
	Execute(ctx context.Context, ex *gate.Execution) (*ExecResult, error)
}

// PlanExecutor is the default executor. It touches nothing: it emits a
// forward delta describing the command and an inverse delta that reverts
// it, leaving real side effects to the host.
type PlanExecutor struct{}

// Execute synthesizes apply/revert deltas for the command.
func (PlanExecutor) Execute(_ context.Context, ex *gate.Execution) (*ExecResult, error) {
	fwd, err := json.Marshal(map[string]any{"op": "apply", "command": ex.Command, "raw": ex.Cmd.Raw})
	if err != nil {
		return nil, fmt.Errorf("encoding forward delta: %w", err)
	}
	inv, err := json.Marshal(map[string]any{"op": "revert", "command": ex.Command, "raw": ex.Cmd.Raw})
	if err != nil {
		return nil, fmt.Errorf("encoding inverse delta: %w", err)
	}
	return &ExecResult{
		ForwardDelta: string(fwd),
		InverseDelta: string(inv),
		Summary:      fmt.Sprintf("%s staged", ex.Command),
	}, nil
}

// progressStep is how far one executed command advances task progress.
const progressStep = 20

// Session runs submissions through the pipeline for one stored session.
// Not safe for concurrent use.
type Session struct {
	store    *db.DB
	rec      *db.Session
	reg      *registry.Registry
	resv     *resolver.Resolver
	gate     *gate.Gate
	led      *ledger.Ledger
	injector *hacks.Injector
	exec     Executor
	logger   *log.Logger

	projectDir string
	progress   int

	gateOpts   []gate.Option
	ledgerOpts []ledger.Option
}

// Option configures a Session.
type Option func(*Session)

// WithProjectDir sets the directory file and directory inputs resolve
// against. Defaults to the current directory.
func WithProjectDir(dir string) Option {
	return func(s *Session) { s.projectDir = dir }
}

// WithRegistry overrides the command table.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Session) { s.reg = reg }
}

// WithInjector overrides the hack injector.
func WithInjector(in *hacks.Injector) Option {
	return func(s *Session) { s.injector = in }
}

// WithExecutor overrides the executor that runs released commands.
func WithExecutor(e Executor) Option {
	return func(s *Session) { s.exec = e }
}

// WithLogger sets the structured logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithGateOptions passes extra options to the gate the session builds.
func WithGateOptions(opts ...gate.Option) Option {
	return func(s *Session) { s.gateOpts = append(s.gateOpts, opts...) }
}

// WithLedgerOptions passes extra options to the ledger the session builds.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(s *Session) { s.ledgerOpts = append(s.ledgerOpts, opts...) }
}

// New builds a session over a stored session row.
func New(store *db.DB, rec *db.Session, opts ...Option) *Session {
	s := &Session{
		store:      store,
		rec:        rec,
		exec:       PlanExecutor{},
		logger:     log.Default(),
		projectDir: ".",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = registry.Default()
	}
	if s.injector == nil {
		s.injector = hacks.NewInjector(nil)
	}
	s.resv = resolver.New(s.reg)

	gateOpts := append([]gate.Option{
		gate.WithResources(NewResources(store, s.projectDir)),
		gate.WithInjector(s.injector),
		gate.WithLogger(s.logger),
	}, s.gateOpts...)
	s.gate = gate.New(s.reg, gateOpts...)

	ledgerOpts := append([]ledger.Option{ledger.WithLogger(s.logger)}, s.ledgerOpts...)
	s.led = ledger.New(store, rec.ID, ledgerOpts...)
	return s
}

// ID returns the stored session id.
func (s *Session) ID() string { return s.rec.ID }

// Registry returns the command table the session resolves against.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Injector returns the session's hack injector.
func (s *Session) Injector() *hacks.Injector { return s.injector }

// Progress returns the current task progress percentage.
func (s *Session) Progress() int { return s.progress }

// Submit runs one line through the pipeline. When a pending confirmation
// exists the line is routed as its answer, unless it starts with "/", which
// abandons the confirmation and submits fresh. An expired confirmation is
// cleared on sight and the line treated as a fresh submission.
func (s *Session) Submit(ctx context.Context, line string) (*Outcome, error) {
	// Strip escape codes and control characters before anything parses or
	// stores the line; REPL input and piped text both pass through here.
	line = strings.TrimSpace(utils.SanitizeInput(line))

	pending, err := s.loadPending()
	if err != nil {
		return nil, err
	}
	if pending != nil {
		switch {
		case s.gate.Expired(pending):
			s.logger.Info("pending confirmation expired",
				"command", pending.Resolution.Command, "mode", pending.Mode)
			if err := s.store.ClearPendingConfirmation(s.rec.ID); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "/"):
			// A fresh command abandons the held one.
			s.logger.Debug("abandoning pending confirmation for new command",
				"command", pending.Resolution.Command)
			if err := s.store.ClearPendingConfirmation(s.rec.ID); err != nil {
				return nil, err
			}
		default:
			d := s.gate.Respond(ctx, pending, line)
			return s.apply(ctx, d)
		}
	}

	cmd, err := parser.Parse(line)
	if err != nil {
		s.logger.Debug("parse failed", "line", line, "err", err)
		return &Outcome{Kind: OutcomeRejected, Reason: err.Error()}, nil
	}
	res := s.resv.Resolve(cmd.Verb)
	d := s.gate.Evaluate(ctx, cmd, res)
	return s.apply(ctx, d)
}

// apply turns a gate decision into an outcome, updating persisted state.
func (s *Session) apply(ctx context.Context, d gate.Decision) (*Outcome, error) {
	switch d.Kind {
	case gate.KindExecute:
		return s.execute(ctx, d.Execute)

	case gate.KindConfirm:
		if err := s.savePending(d.Held); err != nil {
			return nil, err
		}
		return &Outcome{
			Kind:         OutcomePending,
			Command:      d.Held.Resolution.Command,
			Reason:       d.Confirm.Reason,
			Confirmation: d.Confirm,
			Postscripts:  d.Postscripts,
		}, nil

	case gate.KindReject:
		if err := s.store.ClearPendingConfirmation(s.rec.ID); err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeRejected, Reason: d.Reject.Reason}, nil
	}
	return nil, fmt.Errorf("unhandled decision kind %v", d.Kind)
}

func (s *Session) execute(ctx context.Context, ex *gate.Execution) (*Outcome, error) {
	res, err := s.exec.Execute(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", ex.Command, err)
	}

	seq, err := s.led.Record(ledger.Entry{
		ID:           uuid.NewString(),
		Command:      ex.Command,
		Raw:          ex.Cmd.Raw,
		ForwardDelta: res.ForwardDelta,
		InverseDelta: res.InverseDelta,
		Risk:         ex.Risk,
		Timestamp:    s.gate.Now(),
	})
	if err != nil {
		return nil, err
	}

	if in := ex.Cmd.Input; in != nil && in.Kind != parser.KindUnknown {
		if err := s.store.RecordInputUse(string(in.Kind), in.Identifier, s.projectDir); err != nil {
			s.logger.Warn("recording input use failed", "input", in.Raw, "err", err)
		}
	}
	if err := s.store.ClearPendingConfirmation(s.rec.ID); err != nil {
		return nil, err
	}
	if err := s.store.TouchSession(s.rec.ID); err != nil {
		s.logger.Warn("touching session failed", "err", err)
	}

	s.progress += progressStep
	if s.progress > 100 {
		s.progress = 100
	}
	milestones := s.injector.HacksFor(s.progress)

	s.logger.Info("command executed",
		"command", ex.Command, "seq", seq, "risk", ex.Risk, "progress", s.progress)

	return &Outcome{
		Kind:        OutcomeExecuted,
		Command:     ex.Command,
		Seq:         seq,
		Summary:     res.Summary,
		Postscripts: milestones,
	}, nil
}

// Undo rolls the history cursor back up to steps entries.
func (s *Session) Undo(steps int) (*ledger.UndoResult, error) {
	return s.led.Undo(steps)
}

// Redo moves the history cursor forward up to steps entries.
func (s *Session) Redo(steps int) (*ledger.RedoResult, error) {
	return s.led.Redo(steps)
}

// Preview shows what Undo(steps) would restore without moving the cursor.
func (s *Session) Preview(steps int) ([]ledger.Entry, error) {
	return s.led.Preview(steps)
}

// History lists up to limit ledger entries most recent first with the state.
func (s *Session) History(limit int) ([]ledger.Entry, *ledger.State, error) {
	return s.led.List(limit)
}

// HistoryState returns the cursor position and ledger length.
func (s *Session) HistoryState() (*ledger.State, error) {
	return s.led.State()
}

// Pending returns the stored confirmation, or nil when the session is idle.
func (s *Session) Pending() (*gate.Pending, error) {
	return s.loadPending()
}

func (s *Session) loadPending() (*gate.Pending, error) {
	row, err := s.store.GetPendingConfirmation(s.rec.ID)
	if err != nil {
		if errors.Is(err, db.ErrNoPendingConfirmation) {
			return nil, nil
		}
		return nil, err
	}
	var p gate.Pending
	if err := json.Unmarshal([]byte(row.Candidates), &p); err != nil {
		// A corrupt row would wedge the session; drop it and start clean.
		s.logger.Warn("dropping undecodable pending confirmation", "err", err)
		if cerr := s.store.ClearPendingConfirmation(s.rec.ID); cerr != nil {
			return nil, cerr
		}
		return nil, nil
	}
	return &p, nil
}

func (s *Session) savePending(p *gate.Pending) error {
	if p == nil {
		return fmt.Errorf("confirm decision without held state")
	}
	blob, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding pending confirmation: %w", err)
	}
	return s.store.SavePendingConfirmation(&db.PendingConfirmation{
		SessionID:   s.rec.ID,
		Mode:        string(p.Mode),
		Command:     string(p.Resolution.Command),
		Raw:         p.Cmd.Raw,
		Confidence:  p.Resolution.Confidence,
		Candidates:  string(blob),
		ConfirmWord: p.ConfirmWord,
		Reason:      p.Reason,
		CreatedAt:   p.CreatedAt,
		ExpiresAt:   p.ExpiresAt,
	})
}
