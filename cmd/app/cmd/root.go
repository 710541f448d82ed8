package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "order-actor",
	Short: "An order book that serializes buy and sell requests against an investment cap",
	Long: `Order actor runs a single book that owns the committed capital.

Producers (scripted feeds and the HTTP API) submit BUY and SELL requests
through a bounded inbox and each waits for its own reply. A BUY is rejected
when it would push the invested total over the cap; a SELL is always accepted.`,
	SilenceUsage: true,
}

var configPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file")
}
