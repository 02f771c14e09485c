package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	outputFormat string
	emailReport  bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "procura",
	Short: "Procurement intelligence from the command line",
	Long: `Procura plans which vendor sites to inspect for a product, gathers
listings from them concurrently and merges the results into one report.

It also synthesizes market intelligence, finds product images and checks
products against an uploaded compliance document.

Credentials come from GEMINI_API_KEY (or ANTHROPIC_API_KEY with
provider: anthropic); everything else from procura.yaml or PROCURA_* variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Interrupts cancel in-flight work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./procura.yaml, ~/.config/procura/procura.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, json, yaml or html")
	rootCmd.PersistentFlags().BoolVar(&emailReport, "email", false, "Also email the report to smtp.to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(intelCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(complianceCmd)
	rootCmd.AddCommand(historyCmd)
}
