package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/db"
	"github.com/slashdash/sabe/internal/output"
)

var flagSessionName string

func init() {
	sessionCmd.PersistentFlags().StringVarP(&flagSessionName, "name", "n", "default", "session name")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionListCmd)

	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

func sessionView(s *db.Session) map[string]any {
	view := map[string]any{
		"session_id":     s.ID,
		"name":           s.Name,
		"project_path":   s.ProjectPath,
		"started_at":     s.StartedAt.Format(time.RFC3339),
		"last_active_at": s.LastActiveAt.Format(time.RFC3339),
		"active":         s.Active(),
	}
	if s.EndedAt != nil {
		view["ended_at"] = s.EndedAt.Format(time.RFC3339)
	}
	return view
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectPath()
		if err != nil {
			return err
		}
		store, err := db.OpenAndMigrate(GetDB())
		if err != nil {
			return err
		}
		defer store.Close()

		session := &db.Session{
			Name:        flagSessionName,
			ProjectPath: project,
		}
		if err := store.CreateSession(session); err != nil {
			if errors.Is(err, db.ErrActiveSessionExists) {
				return fmt.Errorf("active session %q already exists in project %q", flagSessionName, project)
			}
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(sessionView(session))
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagSessionID == "" {
			return fmt.Errorf("--session-id is required")
		}
		store, err := db.Open(GetDB())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EndSession(flagSessionID); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		out.Success(fmt.Sprintf("session %s ended", flagSessionID))
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions for this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectPath()
		if err != nil {
			return err
		}
		store, err := db.OpenAndMigrate(GetDB())
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.ListSessions(project)
		if err != nil {
			return err
		}

		views := make([]map[string]any, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, sessionView(s))
		}
		out := output.New(output.Format(GetOutput()))
		if out.Format() == output.FormatText {
			if len(views) == 0 {
				out.Text("no sessions")
				return nil
			}
			for _, s := range sessions {
				state := "ended"
				if s.Active() {
					state = "active"
				}
				out.Text("%s  %-10s %s  (%s)", s.ID, s.Name, state, s.StartedAt.Format(time.RFC3339))
			}
			return nil
		}
		return out.Write(views)
	},
}
