package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/manualbridge/manualbridge/internal/app"
	"github.com/manualbridge/manualbridge/internal/ingest"
)

var ingestFromSharePoint bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <document>",
	Short: "Ingest one document folder into the vector store",
	Long: `Ingest finds the PDF under the named document folder, parses it into
steps and figures, publishes assets with signed URLs, and persists the
assembled markdown into the vector store. Already-processed documents are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFromSharePoint, "sharepoint", false, "pull sources from the configured SharePoint drive")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	docName := args[0]

	services, err := buildApp(ctx, app.Options{UseSharePoint: ingestFromSharePoint})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Cache.Close()

	sp := newSpinner(fmt.Sprintf("Ingesting %s...", docName))
	sp.Start()
	result := services.Pipeline.Ingest(ctx, docName)
	sp.Stop()

	printResult(result)

	if result.Status == ingest.StatusFailed {
		return fmt.Errorf("ingestion failed: %s", result.Message)
	}
	return nil
}

func newSpinner(message string) *spinner.Spinner {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " " + message
	if !noColor {
		_ = sp.Color("cyan")
	}
	return sp
}

func printResult(result *ingest.Result) {
	switch result.Status {
	case ingest.StatusSucceeded:
		color.Green("✓ %s (%s)", result.Document, result.FileName)
		fmt.Printf("  pages: %d  steps: %d  assets: %d  banned: %d  deduped: %d  took: %s\n",
			result.TotalPages, result.StepsBuilt, result.AssetsPublished,
			result.ImagesBanned, result.ImagesDeduped, result.Duration.Round(time.Millisecond))
	case ingest.StatusSkipped:
		color.Yellow("- %s: %s", result.Document, result.Message)
	case ingest.StatusFailed:
		color.Red("✗ %s: %s", result.Document, result.Message)
	}
}
