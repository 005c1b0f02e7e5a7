// Package cli implements the run command.
package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/output"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <line>",
	Short: "Submit one line to the session",
	Long: `Submit one line and print the result.

The line is either a slash command or, when a confirmation is pending from
an earlier invocation, the answer to it. Pending confirmations persist in
the state database, so a held command can be answered by a later run.

Examples:
  sabe run "/analyze @file:sales.csv"
  sabe run "/figure-out @file:sales.csv"   # ambiguous: numbered suggestions
  sabe run 1                               # pick suggestion 1
  sabe run "/delete @file:old.txt"         # high risk: asks for DELETE
  sabe run DELETE                          # the exact word releases it`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		line := strings.Join(args, " ")

		s, store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		oc, err := s.Submit(cmd.Context(), line)
		if err != nil {
			return err
		}
		return renderOutcome(output.New(output.Format(GetOutput())), oc)
	},
}
