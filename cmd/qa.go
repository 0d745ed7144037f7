package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"pdfextract/internal/config"
	"pdfextract/internal/logger"
	"pdfextract/internal/qa"
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Run browser QA scenarios against the viewer app",
	Long: `Drive a Chrome instance through the viewer web app and verify the core
workflows: app load, document selection, tab switching, the table and
figure extraction round trips, the no-document guard, and extraction data
persistence across reloads.

Each scenario runs on a fresh page with console error capture; screenshots
and a qa_summary.json report land in the artifacts directory. Requires a
local Chrome or Chromium installation and a running viewer app.

Optional environment variables:
  QA_APP_URL - Viewer app URL when --app-url is not given`,
	Example: `  # Run every scenario against the default app URL
  pdfextract qa

  # Watch the browser work through only the tables workflow
  pdfextract qa --headed --slow-mo 500ms --scenario tables

  # Different app instance and artifacts location
  pdfextract qa --app-url http://localhost:3000 --artifacts ./qa-run`,
	Args: cobra.NoArgs,
	RunE: runQA,
}

func init() {
	rootCmd.AddCommand(qaCmd)

	qaCmd.Flags().String("app-url", qa.DefaultAppURL, "Viewer app URL")
	qaCmd.Flags().Bool("headed", false, "Run the browser with a visible window")
	qaCmd.Flags().Duration("slow-mo", 0, "Delay between browser actions (headed debugging)")
	qaCmd.Flags().String("artifacts", "qa-artifacts", "Directory for screenshots and the summary")
	qaCmd.Flags().String("scenario", "", "Run only scenarios whose name contains this substring")
	qaCmd.Flags().String("document", "", "Document dropdown entry to select (default: first)")
	qaCmd.Flags().Int("timeout", 600, "Whole-run timeout in seconds")
}

func runQA(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("qa")

	appURL, _ := cmd.Flags().GetString("app-url")
	headed, _ := cmd.Flags().GetBool("headed")
	slowMo, _ := cmd.Flags().GetDuration("slow-mo")
	artifacts, _ := cmd.Flags().GetString("artifacts")
	scenario, _ := cmd.Flags().GetString("scenario")
	document, _ := cmd.Flags().GetString("document")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if !cmd.Flags().Changed("app-url") {
		if cfg, err := config.Load(); err == nil && cfg.QAAppURL != "" {
			appURL = cfg.QAAppURL
		}
	}

	log.Info().
		Str("app_url", appURL).
		Bool("headed", headed).
		Str("scenario", scenario).
		Str("artifacts", artifacts).
		Int("timeout", timeoutSecs).
		Msg("Starting QA run")

	// Create context with timeout and signal handling
	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	runner := qa.NewRunner(qa.Options{
		AppURL:       appURL,
		Headless:     !headed,
		SlowMo:       slowMo,
		ArtifactsDir: artifacts,
		Scenario:     scenario,
		Document:     document,
	})

	summary, err := runner.Run(ctx)
	if summary != nil {
		printQASummary(summary)
	}
	if err != nil {
		return handleQAError(err, scenario, log)
	}
	return nil
}

// printQASummary renders the per-scenario outcome table to stdout
func printQASummary(summary *qa.Summary) {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("                      QA SCENARIOS")
	fmt.Println(strings.Repeat("=", 60))

	for _, result := range summary.Results {
		status := "✅"
		if !result.Passed {
			status = "❌"
		}
		fmt.Printf("%s %-26s %6dms", status, result.Name, result.DurationMS)
		if result.Error != "" {
			fmt.Printf("  %s", result.Error)
		}
		fmt.Println()
		for _, msg := range result.ConsoleErrors {
			fmt.Printf("     console: %s\n", msg)
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Passed: %d  Failed: %d\n", summary.Passed, summary.Failed)
}

// handleQAError provides user-friendly error messages for QA run failures
func handleQAError(err error, scenario string, log zerolog.Logger) error {
	log.Error().Err(err).Msg("QA run failed")

	switch {
	case errors.Is(err, qa.ErrUnknownScenario):
		return fmt.Errorf("no scenario matches %q. Run without --scenario to execute the full set", scenario)
	case errors.Is(err, qa.ErrBrowserLaunch):
		return fmt.Errorf("could not launch the browser. Ensure Chrome or Chromium is installed: %w", err)
	case errors.Is(err, qa.ErrScenarioFailed):
		return fmt.Errorf("QA scenarios failed; see the artifacts directory for screenshots and qa_summary.json")
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("QA run timed out. Try increasing --timeout")
	default:
		return fmt.Errorf("QA run failed: %w", err)
	}
}
