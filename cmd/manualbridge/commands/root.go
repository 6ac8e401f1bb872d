package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/manualbridge/manualbridge/internal/app"
	"github.com/manualbridge/manualbridge/internal/config"
	"github.com/manualbridge/manualbridge/internal/observability"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "manualbridge",
	Short: "ManualBridge - ingest technical manuals and answer questions over them",
	Long: `ManualBridge converts technical-manual PDFs into step-segmented,
image-grounded documents in a vector store, and answers natural language
questions against them with figure references intact.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// buildApp loads configuration and wires the service graph for one command
// invocation.
func buildApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Observability.LogLevel
	if verbose {
		level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		ServiceName: cfg.Observability.ServiceName,
	})

	return app.Build(ctx, cfg, logger, opts)
}
