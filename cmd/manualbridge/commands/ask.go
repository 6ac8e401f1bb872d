package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/manualbridge/manualbridge/internal/app"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question over the ingested manuals",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	question := strings.Join(args, " ")

	services, err := buildApp(ctx, app.Options{})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Cache.Close()

	sp := newSpinner("Thinking...")
	sp.Start()
	ans := services.Answer.Answer(ctx, question)
	sp.Stop()

	if !ans.Success {
		color.Red("✗ %s", ans.ErrorMessage)
		return fmt.Errorf("no answer: %s", ans.ErrorMessage)
	}

	fmt.Println(ans.Markdown)
	fmt.Println()
	color.Cyan("source: %s  confidence: %.3f", ans.SourceFile, ans.Confidence)
	return nil
}
