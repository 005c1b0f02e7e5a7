package db

import (
	"fmt"
	"time"
)

// RecentInput is an input reference a command has used before, kept so the
// gate can suggest alternatives when a reference fails to resolve.
type RecentInput struct {
	Kind        string    `json:"kind"`
	Identifier  string    `json:"identifier"`
	ProjectPath string    `json:"project_path"`
	UsedAt      time.Time `json:"used_at"`
}

// RecordInputUse upserts a recently used input reference.
func (db *DB) RecordInputUse(kind, identifier, projectPath string) error {
	_, err := db.Exec(`
		INSERT INTO recent_inputs (kind, identifier, project_path, used_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, identifier, project_path) DO UPDATE SET used_at = excluded.used_at
	`, kind, identifier, projectPath, now())
	if err != nil {
		return fmt.Errorf("recording input use: %w", err)
	}
	return nil
}

// RecentInputs returns up to limit inputs of the given kind for a project,
// most recently used first. Empty kind matches all kinds.
func (db *DB) RecentInputs(kind, projectPath string, limit int) ([]*RecentInput, error) {
	if limit <= 0 {
		limit = 5
	}
	q := `
		SELECT kind, identifier, project_path, used_at
		FROM recent_inputs
		WHERE project_path = ?`
	args := []any{projectPath}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY used_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent inputs: %w", err)
	}
	defer rows.Close()

	var inputs []*RecentInput
	for rows.Next() {
		in := &RecentInput{}
		var usedAt string
		if err := rows.Scan(&in.Kind, &in.Identifier, &in.ProjectPath, &usedAt); err != nil {
			return nil, fmt.Errorf("scanning recent input: %w", err)
		}
		if in.UsedAt, err = parseTime(usedAt); err != nil {
			return nil, fmt.Errorf("parsing used_at: %w", err)
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent inputs: %w", err)
	}
	return inputs, nil
}
