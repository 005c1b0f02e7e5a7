package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/slashdash/sabe/internal/config"
	"github.com/slashdash/sabe/internal/output"
)

var flagConfigGlobal bool

func init() {
	configCmd.PersistentFlags().BoolVar(&flagConfigGlobal, "global", false, "operate on user config (~/.sabe/config.toml)")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEditCmd)

	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or modify SABE configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(cfg)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		val, ok := config.GetValue(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"key":   args[0],
			"value": val,
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the project (or --global) config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}

		value, err := config.ParseValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := config.WriteValue(target, args[0], value); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"path":  target,
			"key":   args[0],
			"value": value,
		})
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR (default: vi)",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := configTarget()
		if err != nil {
			return err
		}

		// Seed the file so the editor has something to show.
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			seed := config.DefaultConfig().General.DirectThreshold
			if err := config.WriteValue(target, "general.direct_threshold", seed); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", target, err)
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		editCmd := exec.Command(editor, target)
		editCmd.Stdin = os.Stdin
		editCmd.Stdout = os.Stdout
		editCmd.Stderr = os.Stderr
		return editCmd.Run()
	},
}

// configTarget picks the file config writes land in: the project config by
// default, --config as an override, the user config with --global.
func configTarget() (string, error) {
	project, err := projectPath()
	if err != nil {
		return "", err
	}
	userPath, projPath := config.ConfigPaths(project, "")
	if flagConfigGlobal {
		return userPath, nil
	}
	if flagConfig != "" {
		return flagConfig, nil
	}
	return projPath, nil
}
