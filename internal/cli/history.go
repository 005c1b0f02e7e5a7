// Package cli implements the history command.
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/ledger"
	"github.com/slashdash/sabe/internal/output"
)

var flagHistoryLimit int

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "max entries to show")

	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the session's command history",
	Long: `Show the executed commands recorded in the session ledger, most
recent first, with the cursor position.

Entries at or before the cursor are undoable; entries past it are the redo
tail and disappear if a new command is recorded.

Examples:
  sabe history
  sabe history --limit 10
  sabe history -j`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, st, err := s.History(flagHistoryLimit)
		if err != nil {
			return err
		}

		type entryView struct {
			Seq       int64  `json:"seq"`
			Command   string `json:"command"`
			Raw       string `json:"raw"`
			Risk      string `json:"risk"`
			Undoable  bool   `json:"undoable"`
			Timestamp string `json:"timestamp"`
		}
		// Entries arrive most recent first, so the redo tail is the leading
		// length-cursor entries.
		tail := st.Length - st.Cursor
		views := make([]entryView, 0, len(entries))
		for i, e := range entries {
			views = append(views, entryView{
				Seq:       e.Seq,
				Command:   string(e.Command),
				Raw:       e.Raw,
				Risk:      e.Risk.String(),
				Undoable:  i >= tail,
				Timestamp: e.Timestamp.Format(time.RFC3339),
			})
		}

		out := output.New(output.Format(GetOutput()))
		if out.Format() == output.FormatText {
			if len(views) == 0 {
				out.Text("history is empty")
				return nil
			}
			for _, v := range views {
				marker := " "
				if !v.Undoable {
					marker = "*"
				}
				out.Text("%s #%d  %-14s %s  [%s]", marker, v.Seq, v.Command, v.Raw, v.Risk)
			}
			out.Text("cursor at %d of %d (* = redo tail)", st.Cursor, st.Length)
			return nil
		}
		return out.Write(map[string]any{
			"cursor":  st.Cursor,
			"length":  st.Length,
			"entries": views,
		})
	},
}

func entrySummaries(entries []ledger.Entry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"seq":     e.Seq,
			"command": string(e.Command),
			"raw":     e.Raw,
			"risk":    e.Risk.String(),
		})
	}
	return out
}
