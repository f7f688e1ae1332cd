package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Show the trading wallet and swap route",
	Args:  cobra.NoArgs,
	RunE:  runWallet,
}

func runWallet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	route := swapRoute(cfg)

	fmt.Fprintf(out, "Address:  %s\n", agentApp.wallet.Address())
	fmt.Fprintf(out, "Chain:    %s (%s)\n", cfg.ChainID, cfg.LCDURL)
	fmt.Fprintf(out, "Trade:    %s of %s per trade\n", cfg.TradeAmount, route.Token.Address)
	fmt.Fprintf(out, "Router:   %s\n", route.Router.Address)
	if route.Pair.Address != "" {
		fmt.Fprintf(out, "Pair:     %s\n", route.Pair.Address)
	}
	return nil
}
