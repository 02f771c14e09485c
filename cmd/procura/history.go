package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/procura/internal/storage"
)

var (
	historyKind    string
	historySubject string
	historyLimit   int
	historySince   time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled runs",
	Long: `List the journal of past operations, newest first.

Kinds: search, intel, images, compliance, document.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Only records of this kind")
	historyCmd.Flags().StringVar(&historySubject, "subject", "", "Only records about this query, product or document")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records to show (0 for all)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "Only records newer than this, e.g. 24h")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.journal == nil {
		a.logger.Warn("journal disabled (storage.backend: none)")
		return a.emit(os.Stdout, "Procura journal", []*storage.Record{})
	}

	filter := storage.Filter{Kind: historyKind, Subject: historySubject, Limit: historyLimit}
	if historySince > 0 {
		since := time.Now().Add(-historySince)
		filter.Since = &since
	}

	records, err := a.journal.Query(ctx, filter)
	if err != nil {
		return err
	}
	return a.emit(os.Stdout, "Procura journal", records)
}
