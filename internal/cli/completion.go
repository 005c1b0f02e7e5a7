package cli

import (
	"os"
	"strings"

	"github.com/slashdash/sabe/internal/db"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	// Best-effort dynamic completion for session IDs.
	_ = rootCmd.RegisterFlagCompletionFunc("session-id", completeSessionIDs)
}

func completeSessionIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	project, err := projectPath()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	database, err := db.Open(GetDB())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer database.Close()

	sessions, err := database.ListSessions(project)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		if s == nil || s.ID == "" || !s.Active() {
			continue
		}
		if toComplete != "" && !strings.HasPrefix(s.ID, toComplete) {
			continue
		}
		out = append(out, s.ID+"\t"+s.Name)
	}

	return out, cobra.ShellCompDirectiveNoFileComp
}
