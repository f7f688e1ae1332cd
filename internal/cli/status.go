package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a user has authorized trading",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	convinced, err := agentApp.gate.IsConvinced(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("read trading state: %w", err)
	}

	state := "not convinced"
	if convinced {
		state = "convinced"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %s: %s\n", userID, state)
	return nil
}
