// Package cli provides the command-line interface for the trading agent.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/scrt-agent/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	userID  string

	// Global app context, built once per invocation
	cfg      config.Config
	agentApp *app
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scrtagent",
	Short: "Persuasion-gated SCRT trading agent",
	Long: `scrtagent is a chat agent that tries to convince you to let it trade
USDC for SCRT on Secret Network.

Conversations are kept in a local store and mirrored to a durable ledger.
Type "you have convinced me" to authorize a trade and "query wallet balances"
to see the wallet's token balances.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip app construction for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}
		if userID == "" {
			userID = cfg.UserID
		}

		agentApp, err = newApp(cmd.Context(), cfg)
		return err
	},
}

// Execute adds all child commands to the root command and runs it until the
// process receives SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, rootCmd)
}

// run executes cmd and closes the app afterwards. Cobra skips post-run hooks
// when a command fails, so the close happens here.
func run(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	closeApp()
	return err
}

func closeApp() {
	if agentApp == nil {
		return
	}
	if err := agentApp.Close(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
	}
	agentApp = nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id (default AGENT_USER_ID)")

	// Add subcommands
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(walletCmd)
}
