package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/registry"
)

// SessionOption customizes a test session.
type SessionOption func(*db.Session)

// MakeSession creates and inserts a session into the DB.
func MakeSession(t *testing.T, database *db.DB, opts ...SessionOption) *db.Session {
	t.Helper()

	s := &db.Session{
		ID:          "sess-" + randHex(6),
		Name:        "session-" + randHex(4),
		ProjectPath: filepath.Join(t.TempDir(), "project"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := database.CreateSession(s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

// WithProject sets the session's project path.
func WithProject(path string) SessionOption {
	return func(s *db.Session) { s.ProjectPath = path }
}

// WithName sets the session name.
func WithName(name string) SessionOption {
	return func(s *db.Session) { s.Name = name }
}

// FixtureRegistry returns a small command table with one entry per risk
// tier, handy for gate tests that want predictable confirm words and costs.
func FixtureRegistry() *registry.Registry {
	return registry.MustNew([]*registry.Spec{
		{
			ID: "read-thing", Description: "read", Risk: registry.RiskLow,
			Synonyms:   []registry.Synonym{{Verb: "read", Weight: 100}, {Verb: "view", Weight: 90}},
			BaseTokens: 100, Steps: 1,
		},
		{
			ID: "edit-thing", Description: "edit", Risk: registry.RiskMedium,
			Synonyms:      []registry.Synonym{{Verb: "edit", Weight: 100}, {Verb: "tweak", Weight: 85}},
			RequiresInput: true,
			BaseTokens:    1000, Steps: 2,
		},
		{
			ID: "ship-thing", Description: "ship", Risk: registry.RiskHigh,
			Synonyms:    []registry.Synonym{{Verb: "ship", Weight: 100}},
			ConfirmWord: "SHIP",
			BaseTokens:  5000, Steps: 3,
		},
		{
			ID: "wipe-thing", Description: "wipe", Risk: registry.RiskCritical,
			Synonyms:      []registry.Synonym{{Verb: "wipe", Weight: 100}},
			RequiresInput: true,
			ConfirmWord:   "WIPE",
			BaseTokens:    200, Steps: 1,
		},
		{
			ID: "churn-thing", Description: "churn", Risk: registry.RiskLow,
			Synonyms:   []registry.Synonym{{Verb: "churn", Weight: 100}},
			BaseTokens: 90000, Steps: 8,
		},
	})
}

// randHex returns a cryptographically random hex string for unique test IDs.
func randHex(n int) string {
	b := make([]byte, (n+1)/2)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)[:n]
}
