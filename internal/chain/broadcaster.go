package chain

import (
	"context"
	"fmt"
	"log/slog"
)

// Broadcaster signs messages with a wallet and submits them through an LCD.
type Broadcaster struct {
	wallet  *Wallet
	lcd     *LCD
	chainID string
	logger  *slog.Logger
}

// NewBroadcaster creates a broadcaster for chainID.
func NewBroadcaster(w *Wallet, lcd *LCD, chainID string, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{wallet: w, lcd: lcd, chainID: chainID, logger: logger}
}

// Broadcast signs msgs with the wallet's current sequence and submits them.
func (b *Broadcaster) Broadcast(ctx context.Context, msgs []ExecuteMsg, fee Fee) (BroadcastResult, error) {
	acct, err := b.lcd.Account(ctx, b.wallet.Address())
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("%w: %w", ErrBroadcast, err)
	}

	txBytes, err := SignTx(b.wallet, msgs, fee, "", SignerData{
		ChainID:       b.chainID,
		AccountNumber: acct.AccountNumber,
		Sequence:      acct.Sequence,
	})
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("%w: %w", ErrBroadcast, err)
	}

	b.logger.Debug("submitting transaction", "account", acct.AccountNumber, "sequence", acct.Sequence, "bytes", len(txBytes))
	return b.lcd.BroadcastTx(ctx, txBytes)
}

// GetTx looks up a transaction by hash.
func (b *Broadcaster) GetTx(ctx context.Context, hash string) (*TxResponse, error) {
	return b.lcd.GetTx(ctx, hash)
}
