package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoPendingConfirmation is returned when a session has no stored
// confirmation awaiting a response.
var ErrNoPendingConfirmation = errors.New("no pending confirmation")

// PendingConfirmation is the persisted form of a gate confirmation that is
// waiting for the user's answer. One per session at most.
type PendingConfirmation struct {
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Command    string    `json:"command"`
	Raw        string    `json:"raw"`
	Confidence int       `json:"confidence"`
	// Candidates holds the JSON-encoded candidate list shown to the user.
	Candidates  string    `json:"candidates"`
	ConfirmWord string    `json:"confirm_word"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the confirmation's TTL has passed at the given time.
func (p *PendingConfirmation) Expired(at time.Time) bool {
	return at.After(p.ExpiresAt)
}

// SavePendingConfirmation upserts the session's pending confirmation.
func (db *DB) SavePendingConfirmation(p *PendingConfirmation) error {
	if p.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if p.Candidates == "" {
		p.Candidates = "[]"
	}
	_, err := db.Exec(`
		INSERT INTO pending_confirmations
			(session_id, mode, command, raw, confidence, candidates, confirm_word, reason, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			mode = excluded.mode,
			command = excluded.command,
			raw = excluded.raw,
			confidence = excluded.confidence,
			candidates = excluded.candidates,
			confirm_word = excluded.confirm_word,
			reason = excluded.reason,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, p.SessionID, p.Mode, p.Command, p.Raw, p.Confidence, p.Candidates, p.ConfirmWord, p.Reason,
		p.CreatedAt.UTC().Format(time.RFC3339), p.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving pending confirmation: %w", err)
	}
	return nil
}

// GetPendingConfirmation reads the session's pending confirmation.
// Returns ErrNoPendingConfirmation when none is stored.
func (db *DB) GetPendingConfirmation(sessionID string) (*PendingConfirmation, error) {
	p := &PendingConfirmation{}
	var createdAt, expiresAt string
	err := db.QueryRow(`
		SELECT session_id, mode, command, raw, confidence, candidates, confirm_word, reason, created_at, expires_at
		FROM pending_confirmations WHERE session_id = ?
	`, sessionID).Scan(&p.SessionID, &p.Mode, &p.Command, &p.Raw, &p.Confidence,
		&p.Candidates, &p.ConfirmWord, &p.Reason, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPendingConfirmation
		}
		return nil, fmt.Errorf("reading pending confirmation: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return p, nil
}

// ClearPendingConfirmation removes the session's pending confirmation, if any.
func (db *DB) ClearPendingConfirmation(sessionID string) error {
	if _, err := db.Exec(`
		DELETE FROM pending_confirmations WHERE session_id = ?
	`, sessionID); err != nil {
		return fmt.Errorf("clearing pending confirmation: %w", err)
	}
	return nil
}
