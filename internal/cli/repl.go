package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/slashdash/sabe/internal/output"
)

func init() {
	rootCmd.AddCommand(replCmd)
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive command loop",
	Long: `Read lines from stdin and run each through the session.

Slash commands are evaluated; plain text answers a pending confirmation.
"exit" or "quit" (or EOF) leaves the loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, store, err := openSession()
		if err != nil {
			return err
		}
		defer store.Close()

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		out := output.New(output.Format(GetOutput()))

		if interactive {
			out.Text("session %s; /<verb> to submit, exit to leave", s.ID())
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			if interactive {
				fmt.Fprint(os.Stderr, "sabe> ")
			}
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			oc, err := s.Submit(cmd.Context(), line)
			if err != nil {
				out.Error(err)
				continue
			}
			if err := renderOutcome(out, oc); err != nil {
				return err
			}
		}
		return scanner.Err()
	},
}
