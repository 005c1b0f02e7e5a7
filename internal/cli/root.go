// Package cli implements the Cobra command-line interface for SABE.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/slashdash/sabe/internal/output"
	"github.com/spf13/cobra"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig    string
	flagOutput    string
	flagJSON      bool
	flagVerbose   bool
	flagDB        string
	flagSession   string
	flagSessionID string
	flagProject   string
)

var rootCmd = &cobra.Command{
	Use:   "sabe",
	Short: "Slash-command gatekeeper with confirmation gates and undo history",
	Long: `SABE parses slash commands, resolves fuzzy verbs against a canonical
command table, and holds anything ambiguous, risky, or expensive behind a
confirmation gate before it executes.

Every submission ends one of three ways:
  EXECUTE  - released immediately and recorded in the undo ledger
  CONFIRM  - held pending your answer (pick a number, type the word, y/n)
  REJECT   - refused; the session returns to idle

Executed commands land in a reversible history ledger: undo and redo move
a cursor over the recorded deltas.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagProject == "" {
			return nil
		}
		if err := os.Chdir(flagProject); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagProject, err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// When no subcommand given, show quick reference card
		showQuickReference()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		goVersion := runtime.Version()
		configPath := flagConfig
		if configPath == "" {
			home, _ := os.UserHomeDir()
			configPath = filepath.Join(home, ".sabe", "config.toml")
		}
		dbPath := GetDB()
		projectPath, _ := os.Getwd()

		payload := map[string]any{
			"version":      version,
			"commit":       commit,
			"build_date":   date,
			"go_version":   goVersion,
			"config_path":  configPath,
			"db_path":      dbPath,
			"project_path": projectPath,
		}

		switch GetOutput() {
		case "json", "yaml":
			out := output.New(output.Format(GetOutput()))
			return out.Write(payload)
		case "text":
			fmt.Printf("sabe %s\n", version)
			fmt.Printf("  commit:  %s\n", commit)
			fmt.Printf("  built:   %s\n", date)
			fmt.Printf("  go:      %s\n", goVersion)
			fmt.Printf("  config:  %s\n", configPath)
			fmt.Printf("  db:      %s\n", dbPath)
			fmt.Printf("  project: %s\n", projectPath)
			return nil
		default:
			return fmt.Errorf("unsupported format: %s", GetOutput())
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetOutput returns the configured output format.
// Precedence: CLI flags > SABE_OUTPUT_FORMAT env > default
func GetOutput() string {
	if flagJSON {
		return "json"
	}
	if flagOutput != "text" {
		return flagOutput
	}
	if envFormat := os.Getenv("SABE_OUTPUT_FORMAT"); envFormat != "" {
		switch envFormat {
		case "json", "yaml", "text":
			return envFormat
		}
	}
	return flagOutput
}

// GetDB returns the database path.
// Precedence: --db flag > config history.database_path > project default
func GetDB() string {
	if flagDB != "" {
		return flagDB
	}
	project, err := projectPath()
	if err != nil || project == "" {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".sabe", "state.db")
	}
	if cfg, err := loadConfig(); err == nil && cfg.History.DatabasePath != "" {
		path := cfg.History.DatabasePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(project, path)
		}
		return path
	}
	return filepath.Join(project, ".sabe", "state.db")
}

func projectPath() (string, error) {
	if flagProject != "" {
		return flagProject, nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return pwd, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml (env: SABE_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path")
	rootCmd.PersistentFlags().StringVar(&flagSession, "session", "", "session name (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagSessionID, "session-id", "s", "", "session ID")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")

	rootCmd.AddCommand(versionCmd)
}
