package trading

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/raphaelgruber/scrt-agent/internal/chain"
	"github.com/raphaelgruber/scrt-agent/internal/metrics"
)

// DefaultConfirmDelay is the wait between broadcast and the confirmation fetch.
const DefaultConfirmDelay = 8 * time.Second

// Chain signs, broadcasts and looks up transactions.
type Chain interface {
	Broadcast(ctx context.Context, msgs []chain.ExecuteMsg, fee chain.Fee) (chain.BroadcastResult, error)
	GetTx(ctx context.Context, hash string) (*chain.TxResponse, error)
}

// SwapBuilder builds the swap message for a sender and notional amount.
type SwapBuilder func(sender, amount string) (chain.ExecuteMsg, error)

// Recorder receives operation timings. metrics.Collector satisfies it.
type Recorder interface {
	Record(op string, d time.Duration)
}

// PipelineConfig holds the fixed trade parameters.
type PipelineConfig struct {
	Sender       string
	Amount       string
	Fee          chain.Fee
	ConfirmDelay time.Duration
}

// PendingTrade is the transient state of one trade invocation.
type PendingTrade struct {
	UserID       string
	Amount       string
	Hash         string
	Code         uint32
	Confirmation Confirmation
}

// Pipeline executes gated swap trades: one broadcast, a flat delay, and a
// single confirmation lookup. The broadcast code alone decides success.
type Pipeline struct {
	gate    *Gate
	chain   Chain
	build   SwapBuilder
	cfg     PipelineConfig
	logger  *slog.Logger
	metrics Recorder

	// sleep waits for the confirmation delay; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a pipeline. rec may be nil.
func NewPipeline(gate *Gate, c Chain, build SwapBuilder, cfg PipelineConfig, rec Recorder, logger *slog.Logger) *Pipeline {
	if cfg.ConfirmDelay <= 0 {
		cfg.ConfirmDelay = DefaultConfirmDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gate:    gate,
		chain:   c,
		build:   build,
		cfg:     cfg,
		logger:  logger,
		metrics: rec,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs one trade for the user. It never returns an error; every
// failure becomes a Result.
func (p *Pipeline) Execute(ctx context.Context, userID string) Result {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.Record(metrics.OpTrade, time.Since(start))
		}
	}()

	convinced, err := p.gate.IsConvinced(ctx, userID)
	if err != nil {
		p.logger.Error("trade gate check failed", "user_id", userID, "error", err)
		return Result{Kind: KindError, Message: err.Error()}
	}
	if !convinced {
		p.logger.Info("trade rejected", "user_id", userID)
		return Result{Kind: KindRejected, Reason: RejectedReason}
	}

	trade := &PendingTrade{UserID: userID, Amount: p.cfg.Amount, Confirmation: ConfirmationPending}

	msg, err := p.build(p.cfg.Sender, trade.Amount)
	if err != nil {
		return Result{Kind: KindError, Message: err.Error()}
	}

	p.logger.Info("broadcasting trade", "user_id", userID, "amount", trade.Amount)
	broadcastStart := time.Now()
	res, err := p.chain.Broadcast(ctx, []chain.ExecuteMsg{msg}, p.cfg.Fee)
	if p.metrics != nil {
		p.metrics.Record(metrics.OpBroadcast, time.Since(broadcastStart))
	}
	if err != nil {
		p.logger.Error("broadcast failed", "user_id", userID, "error", err)
		return Result{Kind: KindError, Message: err.Error()}
	}
	trade.Hash = res.TxHash
	trade.Code = res.Code
	p.logger.Info("trade broadcast", "hash", trade.Hash, "code", trade.Code)

	p.logger.Info("waiting for confirmation", "hash", trade.Hash, "delay", p.cfg.ConfirmDelay)
	txInfo := ""
	if err := p.sleep(ctx, p.cfg.ConfirmDelay); err != nil {
		trade.Confirmation = ConfirmationUnknown
	} else if tx, err := p.chain.GetTx(ctx, trade.Hash); err != nil {
		p.logger.Warn("could not fetch transaction, it might still be processing", "hash", trade.Hash, "error", err)
		trade.Confirmation = ConfirmationUnknown
	} else {
		trade.Confirmation = ConfirmationConfirmed
		if b, err := json.Marshal(tx); err == nil {
			txInfo = string(b)
		}
	}

	result := Result{
		Hash:         trade.Hash,
		Code:         trade.Code,
		RawLog:       res.RawLog,
		Confirmation: trade.Confirmation,
		TxInfo:       txInfo,
	}
	if trade.Code == 0 {
		result.Kind = KindSuccess
	} else {
		result.Kind = KindFailure
	}
	p.logger.Info("trade finished", "user_id", userID, "hash", trade.Hash, "kind", result.Kind, "confirmation", trade.Confirmation)
	return result
}
