package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/scrt-agent/internal/agent"
	"github.com/raphaelgruber/scrt-agent/internal/trading"
)

const (
	// exitCommand ends the chat loop.
	exitCommand = "exit"
	// maxLineBytes bounds one pasted message.
	maxLineBytes = 1 << 20
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the trading agent",
	Long: `Start an interactive conversation with the trading agent.

The agent remembers previous conversations. Type "you have convinced me" to
let it trade, "query wallet balances" to see balances and "exit" to quit.

Examples:
  scrtagent chat
  scrtagent chat --user alice`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	return repl(cmd.Context(), os.Stdin, cmd.OutOrStdout(), userID, agentApp.agent, defaultTheme)
}

// turnHandler runs one chat turn.
type turnHandler interface {
	HandleTurn(ctx context.Context, userID, text string) agent.Response
}

// repl reads one line per turn until "exit", EOF or cancellation.
func repl(ctx context.Context, in io.Reader, out io.Writer, user string, h turnHandler, theme Theme) error {
	fmt.Fprintln(out, theme.hintStyle().Render(fmt.Sprintf("Chatting as %s. Type %q to quit.", user, exitCommand)))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for {
		fmt.Fprint(out, theme.userStyle().Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, exitCommand) {
			fmt.Fprintln(out, theme.hintStyle().Render("Goodbye."))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		resp := h.HandleTurn(ctx, user, line)
		fmt.Fprintf(out, "%s %s\n", theme.agentStyle().Render("Agent:"), renderReply(resp, theme))
	}
}

// renderReply colors trade outcomes and passes other replies through.
func renderReply(resp agent.Response, theme Theme) string {
	if resp.Trade == nil {
		return resp.Text
	}
	switch resp.Trade.Kind {
	case trading.KindSuccess:
		return theme.successStyle().Render(resp.Text)
	case trading.KindRejected:
		return resp.Text
	default:
		return theme.errorStyle().Render(resp.Text)
	}
}
