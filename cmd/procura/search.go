package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/procura/internal/procurement"
)

var searchSites []string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search vendor sites for a product",
	Long: `Plan which vendor sites sell the product, search each of them
concurrently and print one merged report.

Sites that fail are listed in the report; they never fail the search.
Use --site to skip planning and search the given sites only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchSites, "site", nil, "Search these sites instead of planning (repeatable or comma-separated)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := cmd.Context()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var rep *procurement.SearchReport
	if len(searchSites) > 0 {
		websites := make([]procurement.Website, 0, len(searchSites))
		for _, s := range searchSites {
			w, err := procurement.ParseWebsite(s)
			if err != nil {
				return fmt.Errorf("--site: %w", err)
			}
			websites = append(websites, w)
		}
		rep, err = a.manager.Run(ctx, query, websites)
	} else {
		rep, err = a.manager.Search(ctx, query)
	}
	if err != nil {
		return err
	}

	return a.emit(os.Stdout, "Procurement search: "+query, rep)
}
