package commands

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is an explicit config file; empty means search the defaults.
	configPath string

	// logLevel overrides log.level from the config when set.
	logLevel string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "diaryd",
	Short: "Internship daily diary generator",
	Long: `diaryd turns a free-text summary of an intern's working day into a
structured diary entry (Work Summary, Learnings / Outcomes, Blockers / Risks,
Skills, Reference Links) using an OpenAI-compatible chat model.

Run "diaryd serve" for the HTTP API or "diaryd generate" for a one-off entry.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to config file (default: search ., .., /etc/intern-diary, ~/.config/intern-diary)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"Log level override: trace, debug, info, warn, error",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}
