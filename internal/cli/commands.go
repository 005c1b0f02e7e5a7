package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/output"
	"github.com/slashdash/sabe/internal/registry"
)

func init() {
	rootCmd.AddCommand(commandsCmd)
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the canonical command table",
	RunE: func(cmd *cobra.Command, args []string) error {
		type synonymView struct {
			Verb   string `json:"verb"`
			Weight int    `json:"weight"`
		}
		type commandView struct {
			ID            string        `json:"id"`
			Description   string        `json:"description"`
			Risk          string        `json:"risk"`
			Synonyms      []synonymView `json:"synonyms"`
			InputKinds    []string      `json:"input_kinds,omitempty"`
			RequiresInput bool          `json:"requires_input"`
			ConfirmWord   string        `json:"confirm_word,omitempty"`
			BaseTokens    int           `json:"base_tokens"`
			Steps         int           `json:"steps"`
		}

		specs := registry.Default().Specs()
		views := make([]commandView, 0, len(specs))
		for _, spec := range specs {
			v := commandView{
				ID:            string(spec.ID),
				Description:   spec.Description,
				Risk:          spec.Risk.String(),
				RequiresInput: spec.RequiresInput,
				ConfirmWord:   spec.ConfirmWord,
				BaseTokens:    spec.BaseTokens,
				Steps:         spec.Steps,
			}
			for _, syn := range spec.Synonyms {
				v.Synonyms = append(v.Synonyms, synonymView{Verb: syn.Verb, Weight: syn.Weight})
			}
			for _, k := range spec.InputKinds {
				v.InputKinds = append(v.InputKinds, string(k))
			}
			views = append(views, v)
		}

		out := output.New(output.Format(GetOutput()))
		if out.Format() == output.FormatText {
			for _, v := range views {
				verbs := make([]string, 0, len(v.Synonyms))
				for _, syn := range v.Synonyms {
					verbs = append(verbs, syn.Verb)
				}
				out.Text("/%s  [%s]  %s", v.ID, v.Risk, v.Description)
				out.Text("    verbs: %s", strings.Join(verbs, ", "))
				if v.ConfirmWord != "" {
					out.Text("    confirm word: %s", v.ConfirmWord)
				}
			}
			return nil
		}
		return out.Write(views)
	},
}
