package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/manualbridge/manualbridge/internal/app"
	"github.com/manualbridge/manualbridge/internal/ingest"
)

var ingestAllFromSharePoint bool

var ingestAllCmd = &cobra.Command{
	Use:   "ingest-all",
	Short: "Ingest every document folder at the source",
	Long: `Ingest-all lists every document folder at the source and runs the
ingestion pipeline on each in turn. Already-processed documents are skipped,
and one failing document does not stop the batch.`,
	RunE: runIngestAll,
}

func init() {
	ingestAllCmd.Flags().BoolVar(&ingestAllFromSharePoint, "sharepoint", false, "pull sources from the configured SharePoint drive")
	rootCmd.AddCommand(ingestAllCmd)
}

func runIngestAll(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Hour)
	defer cancel()

	services, err := buildApp(ctx, app.Options{UseSharePoint: ingestAllFromSharePoint})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Cache.Close()

	docs, err := services.Pipeline.Documents(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		color.Yellow("No documents found at the source")
		return nil
	}

	fmt.Printf("Ingesting %d documents\n", len(docs))
	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var succeeded, skipped, failed int
	results := make([]*ingest.Result, 0, len(docs))

	for _, doc := range docs {
		result := services.Pipeline.Ingest(ctx, doc)
		results = append(results, result)
		_ = bar.Add(1)

		switch result.Status {
		case ingest.StatusSucceeded:
			succeeded++
		case ingest.StatusSkipped:
			skipped++
		case ingest.StatusFailed:
			failed++
		}
	}

	fmt.Println()
	for _, result := range results {
		printResult(result)
	}

	fmt.Println()
	fmt.Printf("Done: %d succeeded, %d skipped, %d failed\n", succeeded, skipped, failed)

	if failed > 0 {
		return fmt.Errorf("%d documents failed", failed)
	}
	return nil
}
