package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session is not found.
var ErrSessionNotFound = errors.New("session not found")

// ErrActiveSessionExists is returned when creating a session that would
// duplicate an active session for the same name+project combination.
var ErrActiveSessionExists = errors.New("active session already exists for this name and project")

// Session is one logical command session scoped to a project.
type Session struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	ProjectPath  string     `json:"project_path"`
	StartedAt    time.Time  `json:"started_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the session has not ended.
func (s *Session) Active() bool { return s.EndedAt == nil }

// CreateSession inserts a new session, generating its UUID if unset.
// Returns ErrActiveSessionExists when an active session with the same
// name and project already exists.
func (db *DB) CreateSession(s *Session) error {
	if s.ProjectPath == "" {
		return fmt.Errorf("project_path is required")
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	ts := time.Now().UTC()
	s.StartedAt = ts
	s.LastActiveAt = ts
	s.EndedAt = nil

	_, err := db.Exec(`
		INSERT INTO sessions (id, name, project_path, started_at, last_active_at, ended_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, s.ID, s.Name, s.ProjectPath, s.StartedAt.Format(time.RFC3339), s.LastActiveAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrActiveSessionExists
		}
		return fmt.Errorf("creating session: %w", err)
	}

	if _, err := db.Exec(`
		INSERT OR IGNORE INTO ledger_meta (session_id, cursor, next_seq) VALUES (?, 0, 1)
	`, s.ID); err != nil {
		return fmt.Errorf("initializing ledger meta: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, name, project_path, started_at, last_active_at, ended_at
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// GetActiveSession retrieves the active session for a name and project.
// Returns ErrSessionNotFound if no active session exists.
func (db *DB) GetActiveSession(name, projectPath string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, name, project_path, started_at, last_active_at, ended_at
		FROM sessions
		WHERE name = ? AND project_path = ? AND ended_at IS NULL
	`, name, projectPath)
	return scanSession(row)
}

// ResumeOrCreateSession returns the active session for name+project,
// creating one when none exists.
func (db *DB) ResumeOrCreateSession(name, projectPath string) (*Session, error) {
	s, err := db.GetActiveSession(name, projectPath)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	s = &Session{Name: name, ProjectPath: projectPath}
	if err := db.CreateSession(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns all sessions for a project, most recent first.
func (db *DB) ListSessions(projectPath string) ([]*Session, error) {
	rows, err := db.Query(`
		SELECT id, name, project_path, started_at, last_active_at, ended_at
		FROM sessions
		WHERE project_path = ?
		ORDER BY last_active_at DESC
	`, projectPath)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// TouchSession updates last_active_at for an active session.
func (db *DB) TouchSession(id string) error {
	result, err := db.Exec(`
		UPDATE sessions SET last_active_at = ? WHERE id = ? AND ended_at IS NULL
	`, now(), id)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
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

// EndSession marks a session as ended.
func (db *DB) EndSession(id string) error {
	result, err := db.Exec(`
		UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL
	`, now(), id)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
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

func scanSession(row *sql.Row) (*Session, error) {
	s := &Session{}
	var startedAt, lastActiveAt string
	var endedAt sql.NullString

	err := row.Scan(&s.ID, &s.Name, &s.ProjectPath, &startedAt, &lastActiveAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return fillSessionTimes(s, startedAt, lastActiveAt, endedAt)
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var startedAt, lastActiveAt string
		var endedAt sql.NullString

		if err := rows.Scan(&s.ID, &s.Name, &s.ProjectPath, &startedAt, &lastActiveAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		filled, err := fillSessionTimes(s, startedAt, lastActiveAt, endedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, filled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func fillSessionTimes(s *Session, startedAt, lastActiveAt string, endedAt sql.NullString) (*Session, error) {
	var err error
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if s.LastActiveAt, err = parseTime(lastActiveAt); err != nil {
		return nil, fmt.Errorf("parsing last_active_at: %w", err)
	}
	if endedAt.Valid {
		t, err := parseTime(endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		s.EndedAt = &t
	}
	return s, nil
}

// isUniqueConstraintError checks for a unique constraint violation.
// FOREIGN KEY errors also contain "constraint failed" and are excluded.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if containsIgnoreCase(msg, "FOREIGN KEY") {
		return false
	}
	return containsIgnoreCase(msg, "UNIQUE constraint failed") ||
		containsIgnoreCase(msg, "constraint failed")
}

func containsIgnoreCase(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if equalIgnoreCase(s[i:i+len(substr)], substr) {
			return true
		}
	}
	return false
}

func equalIgnoreCase(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
