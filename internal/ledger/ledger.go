// Package ledger implements the reversible command history: a single cursor
// over an append-only sequence of executed commands. Undo moves the cursor
// back and hands the caller the inverse deltas to apply; redo moves it
// forward again. Recording while the cursor sits before the tail discards
// the redo tail for good.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/registry"
)

// ErrNothingToUndo is returned when the cursor is already at zero.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrNothingToRedo is returned when the cursor is already at the tail.
var ErrNothingToRedo = errors.New("nothing to redo")

// Entry is one executed command in the ledger.
type Entry struct {
	Seq          int64              `json:"seq"`
	ID           string             `json:"id"`
	Command      registry.CommandID `json:"command"`
	Raw          string             `json:"raw"`
	ForwardDelta string             `json:"forward_delta"`
	InverseDelta string             `json:"inverse_delta"`
	Risk         registry.RiskTier  `json:"risk"`
	Timestamp    time.Time          `json:"timestamp"`
}

// UndoResult reports a (possibly partial) undo. Restored lists the undone
// entries newest-first; Shortfall is how many requested steps could not be
// honored. A shortfall is not an error.
type UndoResult struct {
	Restored  []Entry `json:"restored"`
	Shortfall int     `json:"shortfall"`
}

// RedoResult mirrors UndoResult for the forward direction; Applied is
// ordered oldest-first, the order the deltas must be re-applied in.
type RedoResult struct {
	Applied   []Entry `json:"applied"`
	Shortfall int     `json:"shortfall"`
}

// State is a read-only snapshot of cursor position and ledger length.
type State struct {
	Cursor int `json:"cursor"`
	Length int `json:"length"`
}

// Ledger is the history for one session. Not safe for concurrent use; a
// session is strictly sequential by contract.
type Ledger struct {
	store      *db.DB
	sessionID  string
	maxEntries int
	logger     *log.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxEntries bounds the ledger; oldest entries are evicted once the
// bound is exceeded. n <= 0 means unbounded.
func WithMaxEntries(n int) Option {
	return func(l *Ledger) { l.maxEntries = n }
}

// WithLogger sets the logger used for eviction and truncation notices.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New returns a ledger bound to one session in the state database.
func New(store *db.DB, sessionID string, opts ...Option) *Ledger {
	l := &Ledger{store: store, sessionID: sessionID, logger: log.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an executed command at the cursor. Any redo tail beyond
// the cursor is discarded, and the oldest entry is evicted if the bound is
// exceeded. Returns the assigned sequence number.
func (l *Ledger) Record(e Entry) (int64, error) {
	seq, truncated, evicted, err := l.store.AppendLedgerEntry(l.sessionID, &db.LedgerEntry{
		EntryID:      e.ID,
		Command:      string(e.Command),
		Raw:          e.Raw,
		ForwardDelta: e.ForwardDelta,
		InverseDelta: e.InverseDelta,
		RiskTier:     e.Risk.String(),
		CreatedAt:    e.Timestamp,
	}, l.maxEntries)
	if err != nil {
		return 0, fmt.Errorf("recording ledger entry: %w", err)
	}
	if truncated > 0 {
		l.logger.Debug("discarded redo tail", "entries", truncated, "session", l.sessionID)
	}
	if evicted > 0 {
		l.logger.Debug("evicted oldest ledger entry", "session", l.sessionID)
	}
	return seq, nil
}

// Undo moves the cursor back up to steps entries. When fewer are available
// it undoes what it can and reports the shortfall; only a cursor already at
// zero is an error.
func (l *Ledger) Undo(steps int) (*UndoResult, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("undo steps must be positive, got %d", steps)
	}
	st, entries, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	if st.Cursor == 0 {
		return nil, ErrNothingToUndo
	}

	n := steps
	if n > st.Cursor {
		n = st.Cursor
	}
	res := &UndoResult{Shortfall: steps - n}
	// Newest first: the order the inverse deltas must be applied in.
	for i := st.Cursor - 1; i >= st.Cursor-n; i-- {
		res.Restored = append(res.Restored, fromRow(entries[i]))
	}

	if err := l.store.SetLedgerCursor(l.sessionID, st.Cursor-n); err != nil {
		return nil, fmt.Errorf("moving cursor back: %w", err)
	}
	return res, nil
}

// Redo moves the cursor forward up to steps entries. A cursor already at
// the tail is an error; otherwise a short redo reports its shortfall.
func (l *Ledger) Redo(steps int) (*RedoResult, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("redo steps must be positive, got %d", steps)
	}
	st, entries, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	available := st.Length - st.Cursor
	if available == 0 {
		return nil, ErrNothingToRedo
	}

	n := steps
	if n > available {
		n = available
	}
	res := &RedoResult{Shortfall: steps - n}
	for i := st.Cursor; i < st.Cursor+n; i++ {
		res.Applied = append(res.Applied, fromRow(entries[i]))
	}

	if err := l.store.SetLedgerCursor(l.sessionID, st.Cursor+n); err != nil {
		return nil, fmt.Errorf("moving cursor forward: %w", err)
	}
	return res, nil
}

// Preview returns the entries Undo(steps) would restore, newest first,
// without moving the cursor.
func (l *Ledger) Preview(steps int) ([]Entry, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("preview steps must be positive, got %d", steps)
	}
	st, entries, err := l.snapshot()
	if err != nil {
		return nil, err
	}
	n := steps
	if n > st.Cursor {
		n = st.Cursor
	}
	var out []Entry
	for i := st.Cursor - 1; i >= st.Cursor-n; i-- {
		out = append(out, fromRow(entries[i]))
	}
	return out, nil
}

// List returns up to limit entries most recent first along with the current
// state. limit <= 0 returns everything; a positive limit keeps the newest.
func (l *Ledger) List(limit int) ([]Entry, *State, error) {
	st, entries, err := l.snapshot()
	if err != nil {
		return nil, nil, err
	}
	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, fromRow(entries[i]))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, st, nil
}

// State returns the cursor position and ledger length.
func (l *Ledger) State() (*State, error) {
	raw, err := l.store.GetLedgerState(l.sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading ledger state: %w", err)
	}
	return &State{Cursor: raw.Cursor, Length: raw.Length}, nil
}

func (l *Ledger) snapshot() (*State, []*db.LedgerEntry, error) {
	st, err := l.State()
	if err != nil {
		return nil, nil, err
	}
	entries, err := l.store.ListLedgerEntries(l.sessionID, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("listing ledger entries: %w", err)
	}
	if len(entries) != st.Length {
		return nil, nil, fmt.Errorf("ledger state out of sync: %d entries, length %d", len(entries), st.Length)
	}
	return st, entries, nil
}

func fromRow(row *db.LedgerEntry) Entry {
	risk, err := registry.ParseRiskTier(row.RiskTier)
	if err != nil {
		risk = registry.RiskCritical
	}
	return Entry{
		Seq:          row.Seq,
		ID:           row.EntryID,
		Command:      registry.CommandID(row.Command),
		Raw:          row.Raw,
		ForwardDelta: row.ForwardDelta,
		InverseDelta: row.InverseDelta,
		Risk:         risk,
		Timestamp:    row.CreatedAt,
	}
}
