// Command posctl inspects the POS account the service is configured against:
// storefronts, menu groups, the item catalog and the modifier catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/pos-orderflow/internal/config"
	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

var Version = "dev"

func main() {
	var output string

	rootCmd := &cobra.Command{
		Use:           "posctl",
		Short:         "posctl - POS account inspection for the order service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")

	newPrinter := func(cmd *cobra.Command) (*printer, error) {
		return newOutput(cmd.OutOrStdout(), output)
	}

	rootCmd.AddCommand(shopsCmd(newPrinter))
	rootCmd.AddCommand(groupsCmd(newPrinter))
	rootCmd.AddCommand(itemsCmd(newPrinter))
	rootCmd.AddCommand(supplementsCmd(newPrinter))
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadClient builds a POS client from the service configuration.
func loadClient() (*config.Config, *pos.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.POSAPIKey == "" {
		return nil, nil, fmt.Errorf("YT_API_KEY is not set")
	}
	return cfg, pos.NewClient(cfg.POSBaseURL, cfg.POSAPIKey, cfg.POSShopGUID, cfg.POSTimeout), nil
}
