package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LedgerEntry is one executed command persisted in the history ledger.
type LedgerEntry struct {
	Seq          int64     `json:"seq"`
	EntryID      string    `json:"entry_id"`
	Command      string    `json:"command"`
	Raw          string    `json:"raw"`
	ForwardDelta string    `json:"forward_delta"`
	InverseDelta string    `json:"inverse_delta"`
	RiskTier     string    `json:"risk_tier"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerState is the persisted cursor position for one session.
type LedgerState struct {
	Cursor  int
	NextSeq int64
	Length  int
}

// GetLedgerState reads the cursor, next sequence number and entry count.
func (db *DB) GetLedgerState(sessionID string) (*LedgerState, error) {
	st := &LedgerState{}
	err := db.QueryRow(`
		SELECT cursor, next_seq FROM ledger_meta WHERE session_id = ?
	`, sessionID).Scan(&st.Cursor, &st.NextSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("reading ledger meta: %w", err)
	}
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM ledger_entries WHERE session_id = ?
	`, sessionID).Scan(&st.Length); err != nil {
		return nil, fmt.Errorf("counting ledger entries: %w", err)
	}
	return st, nil
}

// SetLedgerCursor persists a new cursor position.
func (db *DB) SetLedgerCursor(sessionID string, cursor int) error {
	result, err := db.Exec(`
		UPDATE ledger_meta SET cursor = ? WHERE session_id = ?
	`, cursor, sessionID)
	if err != nil {
		return fmt.Errorf("updating ledger cursor: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendLedgerEntry records an entry at the cursor inside one transaction:
// entries past the cursor are truncated, the entry is appended with a
// strictly increasing seq, the cursor advances over it, and when the ledger
// exceeds maxEntries the oldest entry is evicted (the cursor necessarily
// covers it after the append). maxEntries <= 0 means unbounded.
//
// Returns the assigned seq, plus how many entries were truncated and evicted.
func (db *DB) AppendLedgerEntry(sessionID string, e *LedgerEntry, maxEntries int) (seq int64, truncated, evicted int, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("beginning append: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var cursor int
	var nextSeq int64
	if err = tx.QueryRow(`
		SELECT cursor, next_seq FROM ledger_meta WHERE session_id = ?
	`, sessionID).Scan(&cursor, &nextSeq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrSessionNotFound
		}
		return 0, 0, 0, err
	}

	// Drop the redo tail: everything ranked past the cursor.
	res, err := tx.Exec(`
		DELETE FROM ledger_entries
		WHERE session_id = ? AND seq IN (
			SELECT seq FROM ledger_entries WHERE session_id = ?
			ORDER BY seq ASC LIMIT -1 OFFSET ?
		)
	`, sessionID, sessionID, cursor)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("truncating ledger tail: %w", err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil {
		truncated = int(n)
	}

	if e.EntryID == "" {
		e.EntryID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Seq = nextSeq

	if _, err = tx.Exec(`
		INSERT INTO ledger_entries (seq, session_id, entry_id, command, raw, forward_delta, inverse_delta, risk_tier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Seq, sessionID, e.EntryID, e.Command, e.Raw, e.ForwardDelta, e.InverseDelta, e.RiskTier,
		e.CreatedAt.Format(time.RFC3339)); err != nil {
		return 0, 0, 0, fmt.Errorf("inserting ledger entry: %w", err)
	}

	cursor++ // the new entry is applied

	if maxEntries > 0 && cursor > maxEntries {
		res, err = tx.Exec(`
			DELETE FROM ledger_entries
			WHERE session_id = ? AND seq = (
				SELECT MIN(seq) FROM ledger_entries WHERE session_id = ?
			)
		`, sessionID, sessionID)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("evicting oldest ledger entry: %w", err)
		}
		if n, raErr := res.RowsAffected(); raErr == nil {
			evicted = int(n)
		}
		cursor -= evicted
	}

	if _, err = tx.Exec(`
		UPDATE ledger_meta SET cursor = ?, next_seq = ? WHERE session_id = ?
	`, cursor, nextSeq+1, sessionID); err != nil {
		return 0, 0, 0, fmt.Errorf("updating ledger meta: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, 0, fmt.Errorf("committing append: %w", err)
	}
	return e.Seq, truncated, evicted, nil
}

// ListLedgerEntries returns all entries for a session ordered by seq
// ascending. limit <= 0 returns everything.
func (db *DB) ListLedgerEntries(sessionID string, limit int) ([]*LedgerEntry, error) {
	q := `
		SELECT seq, entry_id, command, raw, forward_delta, inverse_delta, risk_tier, created_at
		FROM ledger_entries WHERE session_id = ? ORDER BY seq ASC`
	args := []any{sessionID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		e := &LedgerEntry{}
		var createdAt string
		if err := rows.Scan(&e.Seq, &e.EntryID, &e.Command, &e.Raw, &e.ForwardDelta,
			&e.InverseDelta, &e.RiskTier, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger entries: %w", err)
	}
	return entries, nil
}
