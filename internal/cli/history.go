package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/scrt-agent/internal/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a user's conversation history",
	Long: `Show a user's conversation history.

History is read from the ledger when it has any entries for the user and
from the local store otherwise.

Examples:
  scrtagent history
  scrtagent history --user alice -n 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the last n exchanges")
}

func runHistory(cmd *cobra.Command, args []string) error {
	history, source, err := agentApp.history.LoadHistory(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintf(out, "No history for %s.\n", userID)
		return nil
	}

	fmt.Fprintf(out, "History for %s (%d exchanges, from %s)\n\n", userID, len(history), source)
	printHistory(out, lastN(history, historyLimit))
	return nil
}

func lastN(history []models.Exchange, n int) []models.Exchange {
	if n <= 0 || n >= len(history) {
		return history
	}
	return history[len(history)-n:]
}

// printHistory writes exchanges oldest first.
func printHistory(out io.Writer, history []models.Exchange) {
	for i, ex := range history {
		fmt.Fprintf(out, "%d. You: %s\n", i+1, ex.Message)
		fmt.Fprintf(out, "   Agent: %s\n", ex.Response)
	}
}
