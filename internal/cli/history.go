package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/placefinder/internal/control"
	"github.com/vietddude/placefinder/internal/core/config"
	"github.com/vietddude/placefinder/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent analyses",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of records to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := setup()
	if cfg.History.Backend == config.HistoryMemory {
		slog.Warn("History backend is in-memory; only the serving process can see its records")
	}

	ctx := context.Background()
	repo, closeFn, err := control.OpenHistory(ctx, *cfg)
	if err != nil {
		slog.Error("Failed to open history", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	recs, err := repo.ListRecent(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to list analyses", "error", err)
		os.Exit(1)
	}
	printHistory(os.Stdout, recs)
}

func printHistory(w io.Writer, recs []*domain.AnalysisRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tPLACES\tCONFIDENCE\tCACHED\tCREATED\tURL")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%t\t%s\t%s\n",
			r.ID, r.Status, r.PlaceCount, r.ConfidenceScore, r.ServedFromCache,
			r.CreatedAt.Format(time.RFC3339), r.SourceURL)
	}
	_ = tw.Flush()
}
