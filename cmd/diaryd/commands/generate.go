package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/intern-diary/diary/config"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness"
)

var (
	// summary is the day's work summary; read from stdin when empty.
	summary string

	// apiKey overrides the configured credential.
	apiKey string

	// outputFormat controls output format (text, json).
	outputFormat string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single diary entry",
	Long: `Generate one diary entry and print it.

The summary comes from --summary, or from stdin when the flag is absent.`,
	Example: `  diaryd generate --summary "Reviewed pull requests and wrote unit tests for the auth module."
  git log --since=yesterday --oneline | diaryd generate --format json`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&summary, "summary", "s", "", "Full-day work summary")
	generateCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (default: $OPENAI_API_KEY)")
	generateCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text, json")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q: want text or json", outputFormat)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg)
	logger, err := newLoggerTo(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}

	text := summary
	if text == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read summary from stdin: %w", err)
		}
		text = string(data)
	}

	orchestrator, err := harness.NewFactory(cfg, logger).CreateOrchestrator()
	if err != nil {
		return err
	}

	result, err := orchestrator.Generate(cmd.Context(), harness.Request{
		Summary:     text,
		Credentials: apiKey,
	})
	if err != nil {
		return err
	}

	if !result.Fields.Complete() {
		logger.Warn().Msg("reply is missing mandatory sections; printing what was recovered")
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return outputJSON(out, map[string]any{
			"success":       true,
			"full_response": result.FullResponse,
			"fields":        result.Fields,
		})
	}
	fmt.Fprint(out, formatEntry(result.Fields))
	return nil
}

// formatEntry renders the non-empty fields in template order.
func formatEntry(entry harness.ParsedEntry) string {
	var b strings.Builder
	for _, name := range harness.FieldNames {
		value := entry.Get(name)
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", name, value)
	}
	return b.String()
}
