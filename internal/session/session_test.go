package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/gate"
	"github.com/slashdash/sabe/internal/parser"
	"github.com/slashdash/sabe/internal/testutil"
)

func newTestSession(t *testing.T, opts ...Option) (*Session, *db.DB, string) {
	t.Helper()

	database := testutil.NewTestDB(t)
	rec := testutil.NewTestSession(t, database)
	project := t.TempDir()

	base := []Option{
		WithProjectDir(project),
		WithLogger(testutil.TestLogger(t)),
	}
	s := New(database, rec, append(base, opts...)...)
	return s, database, project
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestSubmit_ExecutesDirectCommand(t *testing.T) {
	s, database, project := newTestSession(t)
	writeFile(t, project, "sales.csv")

	out, err := s.Submit(context.Background(), "/analyze @file:sales.csv")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomeExecuted {
		t.Fatalf("kind=%s reason=%q, want executed", out.Kind, out.Reason)
	}
	if out.Command != "analyze-data" || out.Seq != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	entries, st, err := s.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if st.Cursor != 1 || st.Length != 1 {
		t.Fatalf("state=%+v", st)
	}
	if !strings.Contains(entries[0].ForwardDelta, `"apply"`) ||
		!strings.Contains(entries[0].InverseDelta, `"revert"`) {
		t.Fatalf("unexpected deltas: %+v", entries[0])
	}

	// The input lands in the recently-used table.
	recent, err := database.RecentInputs("file", project, 10)
	if err != nil {
		t.Fatalf("RecentInputs: %v", err)
	}
	if len(recent) != 1 || recent[0].Identifier != "sales.csv" {
		t.Fatalf("unexpected recent inputs: %+v", recent)
	}
}

func TestSubmit_MilestonePostscriptsAdvanceWithProgress(t *testing.T) {
	s, _, _ := newTestSession(t)

	// Five executions walk progress 20..100. The 80 milestone hack ships
	// disabled, so the fourth execution yields nothing.
	wantIDs := [][]string{
		{"clarify"},
		{"web_backed"},
		{"self_grade"},
		{},
		{"devils_advocate"},
	}
	for i, want := range wantIDs {
		out, err := s.Submit(context.Background(), "/list")
		if err != nil {
			t.Fatalf("Submit %d: %v", i+1, err)
		}
		if out.Kind != OutcomeExecuted {
			t.Fatalf("Submit %d: kind=%s reason=%q", i+1, out.Kind, out.Reason)
		}
		var got []string
		for _, h := range out.Postscripts {
			got = append(got, h.ID)
		}
		if len(got) != len(want) {
			t.Fatalf("execution %d postscripts=%v want %v", i+1, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("execution %d postscripts=%v want %v", i+1, got, want)
			}
		}
	}
	if s.Progress() != 100 {
		t.Fatalf("progress=%d want 100", s.Progress())
	}
}

func TestSubmit_AmbiguousVerbRoundTrip(t *testing.T) {
	s, database, project := newTestSession(t)
	writeFile(t, project, "sales.csv")

	out, err := s.Submit(context.Background(), "/figure-out @file:sales.csv")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomePending {
		t.Fatalf("kind=%s reason=%q, want pending", out.Kind, out.Reason)
	}
	if out.Confirmation.Mode != gate.ModeAmbiguous {
		t.Fatalf("mode=%s want A", out.Confirmation.Mode)
	}
	if len(out.Confirmation.Suggestions) == 0 {
		t.Fatalf("expected suggestions")
	}

	// The confirmation survives as a row, so a second process could answer.
	row, err := database.GetPendingConfirmation(s.ID())
	if err != nil {
		t.Fatalf("GetPendingConfirmation: %v", err)
	}
	if row.Mode != "A" || row.Command != "analyze-data" {
		t.Fatalf("unexpected row: %+v", row)
	}

	out, err = s.Submit(context.Background(), "1")
	if err != nil {
		t.Fatalf("Submit answer: %v", err)
	}
	if out.Kind != OutcomeExecuted || out.Command != "analyze-data" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, err := database.GetPendingConfirmation(s.ID()); !errors.Is(err, db.ErrNoPendingConfirmation) {
		t.Fatalf("pending not cleared: %v", err)
	}
}

func TestSubmit_HighRiskRequiresExactWord(t *testing.T) {
	s, database, project := newTestSession(t)
	writeFile(t, project, "junk.txt")

	out, err := s.Submit(context.Background(), "/delete @file:junk.txt")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomePending || out.Confirmation.Mode != gate.ModeHighRisk {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Confirmation.ConfirmWord != "DELETE" {
		t.Fatalf("confirm word=%q", out.Confirmation.ConfirmWord)
	}

	// "yes" is not the word; the command cancels and the slot clears.
	out, err = s.Submit(context.Background(), "yes")
	if err != nil {
		t.Fatalf("Submit yes: %v", err)
	}
	if out.Kind != OutcomeRejected {
		t.Fatalf("kind=%s, want rejected", out.Kind)
	}
	if _, err := database.GetPendingConfirmation(s.ID()); !errors.Is(err, db.ErrNoPendingConfirmation) {
		t.Fatalf("pending not cleared: %v", err)
	}

	// Second attempt with the exact word goes through.
	if _, err := s.Submit(context.Background(), "/delete @file:junk.txt"); err != nil {
		t.Fatalf("Submit again: %v", err)
	}
	out, err = s.Submit(context.Background(), "DELETE")
	if err != nil {
		t.Fatalf("Submit word: %v", err)
	}
	if out.Kind != OutcomeExecuted || out.Command != "delete-file" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestSubmit_CanonicalNameKeepsHighRiskGate(t *testing.T) {
	s, _, project := newTestSession(t)
	writeFile(t, project, "temp.txt")

	// The full command name resolves directly, so the only thing standing
	// between it and execution is the exact-word confirmation.
	out, err := s.Submit(context.Background(), "/delete-file @file:temp.txt --backup true")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomePending || out.Confirmation.Mode != gate.ModeHighRisk {
		t.Fatalf("kind=%s mode=%v reason=%q, want pending mode D",
			out.Kind, out.Confirmation, out.Reason)
	}
	if out.Confirmation.ConfirmWord != "DELETE" {
		t.Fatalf("confirm word=%q", out.Confirmation.ConfirmWord)
	}

	out, err = s.Submit(context.Background(), "DELETE")
	if err != nil {
		t.Fatalf("Submit word: %v", err)
	}
	if out.Kind != OutcomeExecuted || out.Command != "delete-file" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestSubmit_LargeTaskConfirmsWithYes(t *testing.T) {
	s, _, _ := newTestSession(t)

	out, err := s.Submit(context.Background(), "/generate")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomePending || out.Confirmation.Mode != gate.ModeLargeTask {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	out, err = s.Submit(context.Background(), "y")
	if err != nil {
		t.Fatalf("Submit y: %v", err)
	}
	if out.Kind != OutcomeExecuted || out.Command != "generate-site" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestSubmit_GibberishAnswerReissues(t *testing.T) {
	// ModeHighRisk treats any non-word answer as a mismatch, so use a large
	// task: gibberish re-presents the prompt and keeps the hold alive.
	s, database, _ := newTestSession(t)
	if _, err := s.Submit(context.Background(), "/generate"); err != nil {
		t.Fatalf("Submit generate: %v", err)
	}
	out, err := s.Submit(context.Background(), "hmm")
	if err != nil {
		t.Fatalf("Submit hmm: %v", err)
	}
	if out.Kind != OutcomePending || out.Confirmation.Mode != gate.ModeLargeTask {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, err := database.GetPendingConfirmation(s.ID()); err != nil {
		t.Fatalf("pending lost after reissue: %v", err)
	}
}

func TestSubmit_NewSlashCommandAbandonsPending(t *testing.T) {
	s, database, project := newTestSession(t)
	writeFile(t, project, "junk.txt")

	if _, err := s.Submit(context.Background(), "/delete @file:junk.txt"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	out, err := s.Submit(context.Background(), "/list")
	if err != nil {
		t.Fatalf("Submit /list: %v", err)
	}
	if out.Kind != OutcomeExecuted || out.Command != "list-files" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if _, err := database.GetPendingConfirmation(s.ID()); !errors.Is(err, db.ErrNoPendingConfirmation) {
		t.Fatalf("abandoned confirmation still stored: %v", err)
	}
}

func TestSubmit_ExpiredConfirmationClearsAndReparses(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	s, database, project := newTestSession(t, WithGateOptions(gate.WithClock(clock)))
	writeFile(t, project, "junk.txt")

	if _, err := s.Submit(context.Background(), "/delete @file:junk.txt"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Past the TTL the word no longer confirms anything: the stale hold is
	// dropped and the answer is read as a fresh (invalid) submission.
	now = now.Add(gate.DefaultConfirmTTL + time.Second)
	out, err := s.Submit(context.Background(), "DELETE")
	if err != nil {
		t.Fatalf("Submit after expiry: %v", err)
	}
	if out.Kind != OutcomeRejected {
		t.Fatalf("kind=%s, want rejected", out.Kind)
	}
	if !strings.Contains(out.Reason, "missing verb") {
		t.Fatalf("unexpected reason: %q", out.Reason)
	}
	if _, err := database.GetPendingConfirmation(s.ID()); !errors.Is(err, db.ErrNoPendingConfirmation) {
		t.Fatalf("expired confirmation still stored: %v", err)
	}

	st, err := s.HistoryState()
	if err != nil {
		t.Fatalf("HistoryState: %v", err)
	}
	if st.Length != 0 {
		t.Fatalf("nothing should have executed: %+v", st)
	}
}

func TestSubmit_PlainTextWhileIdleRejects(t *testing.T) {
	s, _, _ := newTestSession(t)

	out, err := s.Submit(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Kind != OutcomeRejected {
		t.Fatalf("kind=%s, want rejected", out.Kind)
	}
}

func TestUndoRedoPassthrough(t *testing.T) {
	s, _, _ := newTestSession(t)

	for _, line := range []string{"/list", "/search"} {
		out, err := s.Submit(context.Background(), line)
		if err != nil || out.Kind != OutcomeExecuted {
			t.Fatalf("Submit %q: %+v, %v", line, out, err)
		}
	}

	undone, err := s.Undo(1)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if len(undone.Restored) != 1 || undone.Restored[0].Command != "search-content" {
		t.Fatalf("unexpected undo: %+v", undone)
	}

	preview, err := s.Preview(5)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(preview) != 1 || preview[0].Command != "list-files" {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	redone, err := s.Redo(1)
	if err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if len(redone.Applied) != 1 || redone.Applied[0].Command != "search-content" {
		t.Fatalf("unexpected redo: %+v", redone)
	}
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, *gate.Execution) (*ExecResult, error) {
	return nil, fmt.Errorf("backend unavailable")
}

func TestSubmit_ExecutorFailureRecordsNothing(t *testing.T) {
	s, _, _ := newTestSession(t, WithExecutor(failingExecutor{}))

	if _, err := s.Submit(context.Background(), "/list"); err == nil {
		t.Fatalf("expected executor error")
	}
	st, err := s.HistoryState()
	if err != nil {
		t.Fatalf("HistoryState: %v", err)
	}
	if st.Length != 0 {
		t.Fatalf("failed execution reached the ledger: %+v", st)
	}
}

func TestResources_Exists(t *testing.T) {
	database := testutil.NewTestDB(t)
	project := t.TempDir()
	writeFile(t, project, "notes.md")
	if err := os.Mkdir(filepath.Join(project, "docs"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r := NewResources(database, project)
	ctx := context.Background()

	cases := []struct {
		ref  parser.InputRef
		want bool
	}{
		{parser.InputRef{Kind: parser.KindFile, Identifier: "notes.md"}, true},
		{parser.InputRef{Kind: parser.KindFile, Identifier: "missing.md"}, false},
		{parser.InputRef{Kind: parser.KindFile, Identifier: "docs"}, false},
		{parser.InputRef{Kind: parser.KindDirectory, Identifier: "docs"}, true},
		{parser.InputRef{Kind: parser.KindDirectory, Identifier: "notes.md"}, false},
		{parser.InputRef{Kind: parser.KindURL, Identifier: "https://example.com/x"}, true},
		{parser.InputRef{Kind: parser.KindURL, Identifier: "not a url"}, false},
		{parser.InputRef{Kind: parser.KindData, Identifier: "dataset-1"}, false},
	}
	for _, tc := range cases {
		got, err := r.Exists(ctx, tc.ref)
		if err != nil {
			t.Fatalf("Exists(%+v): %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("Exists(%+v)=%v want %v", tc.ref, got, tc.want)
		}
	}

	// Opaque kinds become real once they have been used.
	if err := database.RecordInputUse("data", "dataset-1", project); err != nil {
		t.Fatalf("RecordInputUse: %v", err)
	}
	got, err := r.Exists(ctx, parser.InputRef{Kind: parser.KindData, Identifier: "dataset-1"})
	if err != nil || !got {
		t.Fatalf("Exists(data:dataset-1)=%v, %v", got, err)
	}
}

func TestResources_Recent(t *testing.T) {
	database := testutil.NewTestDB(t)
	project := t.TempDir()
	r := NewResources(database, project)

	for _, name := range []string{"a.csv", "b.csv"} {
		if err := database.RecordInputUse("file", name, project); err != nil {
			t.Fatalf("RecordInputUse: %v", err)
		}
	}
	recent, err := r.Recent(context.Background(), parser.KindFile, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("unexpected recent: %v", recent)
	}
}
