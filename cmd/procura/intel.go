package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/procura/internal/procurement"
)

var intelQuery procurement.IntelQuery

var intelCmd = &cobra.Command{
	Use:   "intel <product_name>",
	Short: "Market intelligence for a product",
	Long: `Synthesize trends, supply chain status, a price forecast and key
manufacturers for a product. Context flags left out are sent as "unknown".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIntel,
}

func init() {
	intelCmd.Flags().StringVar(&intelQuery.Category, "category", "", "Product category")
	intelCmd.Flags().StringVar(&intelQuery.Manufacturer, "manufacturer", "", "Current manufacturer")
	intelCmd.Flags().StringVar(&intelQuery.Price, "price", "", "Current price")
	intelCmd.Flags().StringVar(&intelQuery.Vendor, "vendor", "", "Current vendor")
}

func runIntel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	q := intelQuery
	q.ProductName = strings.Join(args, " ")

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.manager.GetMarketIntelligence(ctx, q.Prompt())
	if err != nil {
		return err
	}

	return a.emit(os.Stdout, "Market intelligence: "+q.ProductName, rep)
}
