package cli

import (
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/scrt-agent/internal/config"
	"github.com/raphaelgruber/scrt-agent/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over HTTP",
	Long: `Serve the agent over HTTP until interrupted.

Examples:
  scrtagent serve
  scrtagent serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default SERVER_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}

	srv := server.New(server.Deps{
		Agent:    agentApp.agent,
		Status:   agentApp.gate,
		History:  agentApp.history,
		Balances: agentApp.balances,
		Metrics:  agentApp.metrics,
	}, config.Component(agentApp.logger, "server"))
	return srv.Run(cmd.Context(), addr)
}
