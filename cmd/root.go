package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pdfextract/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "pdfextract",
	Short: "PDF extraction toolkit - text, tables, figures, and evidence reports",
	Long: `pdfextract turns PDFs into structured data: layout-preserving text,
word positions, document sections, reconstructed tables, embedded figures,
annotated evidence screenshots, and self-contained HTML reports.

The same operations are available as an HTTP service (serve), as one-shot
CLI runs (extract, batch, report), and the bundled browser QA harness (qa)
verifies the viewer app end to end.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("pdfextract executed")

		fmt.Println("pdfextract - PDF extraction toolkit")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
