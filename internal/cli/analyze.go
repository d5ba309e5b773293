package cli

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/placefinder/internal/control"
)

var forceRefresh bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "Analyze one post and print the extracted places as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&forceRefresh, "force", false, "skip the cache")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	cfg := setup()
	ctx := context.Background()

	app, err := control.NewApp(ctx, *cfg)
	if err != nil {
		slog.Error("Failed to initialize placefinder", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	out, err := app.Service().Analyze(ctx, args[0], forceRefresh)
	if err != nil {
		slog.Error("Analysis failed", "url", args[0], "error", err)
		app.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("Failed to write result", "error", err)
	}
}
