package cli

import (
	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/output"
)

var flagHacksProgress int

func init() {
	hacksCmd.Flags().IntVar(&flagHacksProgress, "progress", -1, "show the postscripts due at this progress percentage")

	rootCmd.AddCommand(hacksCmd)
}

var hacksCmd = &cobra.Command{
	Use:   "hacks",
	Short: "List the milestone postscripts",
	Long: `List the prompt postscripts and the progress milestones they fire
at. With --progress, show only the ones due at that percentage.

Examples:
  sabe hacks
  sabe hacks --progress 60`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		in := buildInjector(cfg)

		set := in.Set()
		if flagHacksProgress >= 0 {
			set = in.Peek(flagHacksProgress)
		}

		out := output.New(output.Format(GetOutput()))
		if out.Format() == output.FormatText {
			if len(set) == 0 {
				out.Text("no postscripts due")
				return nil
			}
			for _, h := range set {
				state := "enabled"
				if !h.Enabled {
					state = "disabled"
				}
				out.Text("%3d%%  %-16s %s  (%s)", h.Milestone, h.ID, h.Name, state)
				out.Text("      %s", h.Postscript)
			}
			return nil
		}
		return out.Write(set)
	},
}
