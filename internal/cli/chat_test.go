package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/scrt-agent/internal/agent"
	"github.com/raphaelgruber/scrt-agent/internal/trading"
)

type recordingHandler struct {
	turns []string
}

func (h *recordingHandler) HandleTurn(_ context.Context, user, text string) agent.Response {
	h.turns = append(h.turns, user+":"+text)
	return agent.Response{Text: "reply to " + text, Kind: agent.KindChat}
}

func TestREPL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		turns []string
	}{
		{"exit quits", "hello\nexit\nignored\n", []string{"alice:hello"}},
		{"exit is case-insensitive", "EXIT\n", nil},
		{"blank lines skipped", "\n   \nhi there  \n", []string{"alice:hi there"}},
		{"eof ends", "one\ntwo", []string{"alice:one", "alice:two"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			var out bytes.Buffer

			err := repl(context.Background(), strings.NewReader(tt.input), &out, "alice", h, defaultTheme)

			require.NoError(t, err)
			assert.Equal(t, tt.turns, h.turns)
			for _, turn := range tt.turns {
				text := strings.TrimPrefix(turn, "alice:")
				assert.Contains(t, out.String(), "reply to "+text)
			}
		})
	}
}

func TestREPLLongLine(t *testing.T) {
	h := &recordingHandler{}
	long := strings.Repeat("convince me ", 20_000)

	err := repl(context.Background(), strings.NewReader(long+"\nexit\n"), &bytes.Buffer{}, "alice", h, defaultTheme)

	require.NoError(t, err)
	require.Len(t, h.turns, 1)
	assert.Equal(t, "alice:"+strings.TrimSpace(long), h.turns[0])
}

func TestREPLStopsOnCancel(t *testing.T) {
	h := &recordingHandler{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repl(ctx, strings.NewReader("hello\n"), &bytes.Buffer{}, "alice", h, defaultTheme)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.turns)
}

func TestRenderReply(t *testing.T) {
	plain := agent.Response{Text: "hi"}
	assert.Equal(t, "hi", renderReply(plain, defaultTheme))

	rejected := agent.Response{Text: "no", Trade: &trading.Result{Kind: trading.KindRejected}}
	assert.Equal(t, "no", renderReply(rejected, defaultTheme))

	failed := agent.Response{Text: "failed", Trade: &trading.Result{Kind: trading.KindFailure}}
	assert.Contains(t, renderReply(failed, defaultTheme), "failed")
}
