// Package cmd implements the command-line interface for the scraper.
package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	cmdcommon "github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/common"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/crawl"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/httpd"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/runs"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "kronobergsbil-scraper",
	Short: "Vehicle data scraper and price ledger",
	Long: `Crawls dealer pages and PDFs, extracts vehicle, trim and campaign
data with AI assistance, and reconciles prices into a versioned ledger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to config.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdcommon.CfgFile, "config", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(crawl.Cmd)
	rootCmd.AddCommand(httpd.Cmd)
	rootCmd.AddCommand(runs.Cmd)
	rootCmd.AddCommand(scheduler.Cmd)
}
