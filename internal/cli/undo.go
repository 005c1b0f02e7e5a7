package cli

import (
	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/output"
)

var (
	flagUndoSteps   int
	flagUndoPreview bool
	flagRedoSteps   int
)

func init() {
	undoCmd.Flags().IntVar(&flagUndoSteps, "steps", 1, "entries to undo")
	undoCmd.Flags().BoolVar(&flagUndoPreview, "preview", false, "show what would be undone without moving the cursor")
	redoCmd.Flags().IntVar(&flagRedoSteps, "steps", 1, "entries to redo")

	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(redoCmd)
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Undo recorded commands",
	Long: `Move the history cursor back and print the inverse deltas to apply,
newest first. Asking for more steps than are available undoes what it can
and reports the shortfall; only an empty history is an error.

Examples:
  sabe undo
  sabe undo --steps 3
  sabe undo --preview`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		out := output.New(output.Format(GetOutput()))

		if flagUndoPreview {
			entries, err := s.Preview(flagUndoSteps)
			if err != nil {
				return err
			}
			if out.Format() == output.FormatText {
				if len(entries) == 0 {
					out.Text("nothing to undo")
					return nil
				}
				for _, e := range entries {
					out.Text("would undo #%d %s  %s", e.Seq, e.Command, e.Raw)
				}
				return nil
			}
			return out.Write(map[string]any{"preview": entrySummaries(entries)})
		}

		res, err := s.Undo(flagUndoSteps)
		if err != nil {
			return err
		}
		if out.Format() == output.FormatText {
			for _, e := range res.Restored {
				out.Text("undone #%d %s  %s", e.Seq, e.Command, e.Raw)
			}
			if res.Shortfall > 0 {
				out.Text("%d step(s) short: history exhausted", res.Shortfall)
			}
			return nil
		}
		return out.Write(map[string]any{
			"restored":  entrySummaries(res.Restored),
			"shortfall": res.Shortfall,
		})
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "Redo undone commands",
	Long: `Move the history cursor forward and print the forward deltas to
re-apply, oldest first. A cursor already at the tail is an error; otherwise
a short redo reports its shortfall.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := s.Redo(flagRedoSteps)
		if err != nil {
			return err
		}
		out := output.New(output.Format(GetOutput()))
		if out.Format() == output.FormatText {
			for _, e := range res.Applied {
				out.Text("redone #%d %s  %s", e.Seq, e.Command, e.Raw)
			}
			if res.Shortfall > 0 {
				out.Text("%d step(s) short: nothing further to redo", res.Shortfall)
			}
			return nil
		}
		return out.Write(map[string]any{
			"applied":   entrySummaries(res.Applied),
			"shortfall": res.Shortfall,
		})
	},
}
