// Package agent is the per-turn chat orchestrator of the trading agent.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/scrt-agent/internal/llm"
	"github.com/raphaelgruber/scrt-agent/internal/memory"
	"github.com/raphaelgruber/scrt-agent/internal/metrics"
	"github.com/raphaelgruber/scrt-agent/internal/models"
	"github.com/raphaelgruber/scrt-agent/internal/trading"
)

// ErrInitialization marks a setup failure the agent cannot start with.
var ErrInitialization = errors.New("agent initialization failed")

// Reserved phrases, matched case-insensitively against the whole input.
const (
	TriggerPhrase      = "you have convinced me"
	BalancePhrase      = "query wallet balances"
	QuoteKeyword       = "kanye"
	SystemPrompt       = "You are my $SCRT trading agent. You must convince me to let you trade USDC for SCRT."
	tradeReplyPrefix   = "Excellent! I will begin trading now.\n\n"
	llmErrorReplyStart = "Sorry, I encountered an error: "
)

// LocalWriter appends turns to the local conversation store.
type LocalWriter interface {
	Append(ctx context.Context, userID, message, response string) error
}

// LedgerWriter appends turns to the durable ledger.
type LedgerWriter interface {
	StoreMemory(ctx context.Context, userID, message, response string) (string, error)
}

// ChatLogger uploads audit records of model invocations.
type ChatLogger interface {
	StoreChatLog(ctx context.Context, runID string, payload any) (string, error)
}

// HistoryLoader returns a user's history from one storage tier.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, userID string) ([]models.Exchange, memory.Source, error)
}

// Gate flips the per-user trading flag.
type Gate interface {
	MarkConvinced(ctx context.Context, userID string) error
}

// Trader runs one gated trade.
type Trader interface {
	Execute(ctx context.Context, userID string) trading.Result
}

// ChatModel answers an ordered conversation.
type ChatModel interface {
	Invoke(ctx context.Context, messages []llm.Message) (llm.Reply, error)
}

// QuoteSource returns a quote; it never fails.
type QuoteSource interface {
	Fetch(ctx context.Context) string
}

// Deps are the collaborators of an Agent. ChatLog and Metrics are optional.
type Deps struct {
	Local    LocalWriter
	Ledger   LedgerWriter
	History  HistoryLoader
	Gate     Gate
	Trader   Trader
	Model    ChatModel
	Quotes   QuoteSource
	Balances *BalanceReader
	ChatLog  ChatLogger
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Agent handles one turn at a time for any user.
type Agent struct {
	deps   Deps
	logger *slog.Logger
}

// New validates the collaborators and creates an agent.
func New(deps Deps) (*Agent, error) {
	var missing []string
	if deps.Local == nil {
		missing = append(missing, "local store")
	}
	if deps.Ledger == nil {
		missing = append(missing, "ledger")
	}
	if deps.History == nil {
		missing = append(missing, "history")
	}
	if deps.Gate == nil {
		missing = append(missing, "gate")
	}
	if deps.Trader == nil {
		missing = append(missing, "trader")
	}
	if deps.Model == nil {
		missing = append(missing, "model")
	}
	if deps.Quotes == nil {
		missing = append(missing, "quotes")
	}
	if deps.Balances == nil {
		missing = append(missing, "balances")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInitialization, strings.Join(missing, ", "))
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{deps: deps, logger: logger}, nil
}

// Kind names the branch that produced a response.
type Kind string

const (
	KindTrade    Kind = "trade"
	KindBalances Kind = "balances"
	KindChat     Kind = "chat"
)

// Response is the outcome of one turn. Text is always set.
type Response struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
	// Trade is set for the trade branch.
	Trade *trading.Result `json:"trade,omitempty"`
	// Source names the history tier used by the chat branch.
	Source memory.Source `json:"source,omitempty"`
	// PersistErr reports a failure to save the turn to either tier.
	PersistErr error `json:"-"`
	// HistoryErr reports that earlier turns could not be read; the reply was
	// generated without them.
	HistoryErr error `json:"-"`
}

// HandleTurn processes one user message to completion.
func (a *Agent) HandleTurn(ctx context.Context, userID, text string) Response {
	start := time.Now()
	var resp Response
	switch {
	case strings.EqualFold(text, TriggerPhrase):
		resp = a.handleTrigger(ctx, userID, text)
	case strings.EqualFold(text, BalancePhrase):
		resp = a.handleBalances(ctx, userID, text)
	default:
		resp = a.handleChat(ctx, userID, text)
	}

	if resp.HistoryErr != nil {
		resp.Text += fmt.Sprintf("\n\n(Note: earlier conversation could not be loaded: %v)", resp.HistoryErr)
	}
	if resp.PersistErr != nil {
		resp.Text += fmt.Sprintf("\n\n(Note: this conversation could not be fully saved: %v)", resp.PersistErr)
	}
	a.record(metrics.OpTurn, start, resp.PersistErr)
	a.logger.Info("turn handled", "user_id", userID, "kind", resp.Kind, "duration_ms", time.Since(start).Milliseconds())
	return resp
}

func (a *Agent) handleTrigger(ctx context.Context, userID, text string) Response {
	a.logger.Info("user convinced, enabling trading", "user_id", userID)
	if err := a.deps.Gate.MarkConvinced(ctx, userID); err != nil {
		a.logger.Error("failed to mark user convinced", "user_id", userID, "error", err)
	}

	result := a.deps.Trader.Execute(ctx, userID)
	resp := Response{
		Text:  tradeReplyPrefix + result.String(),
		Kind:  KindTrade,
		Trade: &result,
	}
	if result.Kind != trading.KindRejected {
		resp.PersistErr = a.persist(ctx, userID, text, resp.Text)
	}
	return resp
}

func (a *Agent) handleBalances(ctx context.Context, userID, text string) Response {
	resp := Response{
		Text: a.deps.Balances.Report(ctx),
		Kind: KindBalances,
	}
	resp.PersistErr = a.persist(ctx, userID, text, resp.Text)
	return resp
}

func (a *Agent) handleChat(ctx context.Context, userID, text string) Response {
	fetchStart := time.Now()
	history, source, err := a.deps.History.LoadHistory(ctx, userID)
	a.record(metrics.OpLedgerFetch, fetchStart, err)
	historyErr := err
	if err != nil {
		a.logger.Error("failed to load history, continuing without it", "user_id", userID, "error", err)
		history = nil
	}

	messages := make([]llm.Message, 0, 2*len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt})
	for _, ex := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleHuman, Content: ex.Message},
			llm.Message{Role: llm.RoleAI, Content: ex.Response},
		)
	}
	messages = append(messages, llm.Message{Role: llm.RoleHuman, Content: text})

	var reply string
	invokeStart := time.Now()
	out, err := a.deps.Model.Invoke(ctx, messages)
	a.record(metrics.OpLLMInvoke, invokeStart, err)
	if err != nil {
		a.logger.Error("model invocation failed", "user_id", userID, "error", err, "fatal", errors.Is(err, llm.ErrFatalAPI))
		reply = llmErrorReplyStart + err.Error()
	} else {
		reply = out.Text
		a.auditChat(ctx, userID, messages, out)
		if strings.Contains(strings.ToLower(text), QuoteKeyword) {
			reply += "\n\nKanye says: \"" + a.deps.Quotes.Fetch(ctx) + "\""
		}
	}

	resp := Response{Text: reply, Kind: KindChat, Source: source, HistoryErr: historyErr}
	resp.PersistErr = a.persist(ctx, userID, text, reply)
	return resp
}

// persist writes the turn to the local store and then the ledger. The second
// write runs even if the first fails. Both writes outlive the caller's
// cancellation so a broadcast trade is always recorded.
func (a *Agent) persist(ctx context.Context, userID, message, response string) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	if err := a.deps.Local.Append(ctx, userID, message, response); err != nil {
		a.logger.Error("failed to store turn locally", "user_id", userID, "error", err)
		errs = append(errs, err)
	}

	start := time.Now()
	_, err := a.deps.Ledger.StoreMemory(ctx, userID, message, response)
	a.record(metrics.OpLedgerStore, start, err)
	if err != nil {
		a.logger.Error("failed to store turn on ledger", "user_id", userID, "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type chatAudit struct {
	RunID     string        `json:"run_id"`
	UserID    string        `json:"user_id"`
	Timestamp time.Time     `json:"timestamp"`
	Messages  []llm.Message `json:"messages"`
	Output    string        `json:"output"`
	Tools     bool          `json:"structured"`
}

// auditChat uploads the invocation when a chat logger is configured. Failures
// are logged only.
func (a *Agent) auditChat(ctx context.Context, userID string, messages []llm.Message, out llm.Reply) {
	if a.deps.ChatLog == nil {
		return
	}
	runID := uuid.NewString()
	_, err := a.deps.ChatLog.StoreChatLog(ctx, runID, chatAudit{
		RunID:     runID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Messages:  messages,
		Output:    out.Text,
		Tools:     out.Structured,
	})
	if err != nil {
		a.logger.Warn("failed to upload chat log", "run_id", runID, "error", err)
	}
}

func (a *Agent) record(op string, start time.Time, err error) {
	if a.deps.Metrics == nil {
		return
	}
	if err != nil {
		a.deps.Metrics.RecordError(op, time.Since(start))
		return
	}
	a.deps.Metrics.Record(op, time.Since(start))
}
