package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/procura/internal/procurement"
)

var imagesCmd = &cobra.Command{
	Use:   "images <product_name> <website_url>",
	Short: "Find product images on a vendor site",
	Args:  cobra.ExactArgs(2),
	RunE:  runImages,
}

func runImages(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	product, website := args[0], args[1]

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	images, err := a.manager.FindProductImages(ctx, product, website)
	if err != nil {
		return err
	}

	return a.emit(os.Stdout, "Product images: "+product, &procurement.ImageResult{
		ProductName: product,
		Website:     website,
		Images:      images,
	})
}
