package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/slashdash/sabe/internal/testutil"
	"github.com/spf13/cobra"
)

func setupCompletionDB(t *testing.T) string {
	t.Helper()
	resetFlags(t)

	project := t.TempDir()
	flagProject = project
	flagDB = filepath.Join(project, ".sabe", "state.db")
	return project
}

func TestCompleteSessionIDs_EmptyDatabase(t *testing.T) {
	setupCompletionDB(t)
	testutil.NewTestDBAtPath(t, flagDB)

	completions, directive := completeSessionIDs(nil, nil, "")

	if len(completions) != 0 {
		t.Errorf("expected 0 completions with empty database, got %d", len(completions))
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %d", directive)
	}
}

func TestCompleteSessionIDs_WithSessions(t *testing.T) {
	project := setupCompletionDB(t)
	database := testutil.NewTestDBAtPath(t, flagDB)

	testutil.MakeSession(t, database, testutil.WithProject(project), testutil.WithName("alpha"))
	testutil.MakeSession(t, database, testutil.WithProject(project), testutil.WithName("beta"))

	completions, directive := completeSessionIDs(nil, nil, "")

	if len(completions) != 2 {
		t.Errorf("expected 2 completions, got %d: %v", len(completions), completions)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %d", directive)
	}

	found := false
	for _, c := range completions {
		if strings.Contains(c, "alpha") || strings.Contains(c, "beta") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected completions to include session names")
	}
}

func TestCompleteSessionIDs_WithPrefix(t *testing.T) {
	project := setupCompletionDB(t)
	database := testutil.NewTestDBAtPath(t, flagDB)

	sess := testutil.MakeSession(t, database, testutil.WithProject(project), testutil.WithName("alpha"))
	testutil.MakeSession(t, database, testutil.WithProject(project), testutil.WithName("beta"))

	prefix := sess.ID[:8]
	completions, _ := completeSessionIDs(nil, nil, prefix)

	for _, c := range completions {
		if !strings.HasPrefix(c, prefix) {
			t.Errorf("completion %q doesn't start with prefix %q", c, prefix)
		}
	}
}

func TestCompleteSessionIDs_DatabaseNotFound(t *testing.T) {
	resetFlags(t)
	flagDB = "/nonexistent/path/state.db"

	completions, directive := completeSessionIDs(nil, nil, "")

	if len(completions) != 0 {
		t.Errorf("expected 0 completions when database missing, got %d", len(completions))
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("expected ShellCompDirectiveNoFileComp, got %d", directive)
	}
}
