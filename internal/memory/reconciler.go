package memory

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/scrt-agent/internal/models"
)

// Source names which tier a history came from.
type Source string

const (
	SourceLedger Source = "ledger"
	SourceLocal  Source = "local"
)

// LedgerReader reads a user's exchanges from the durable ledger.
type LedgerReader interface {
	FetchHistory(ctx context.Context, userID string) ([]models.Exchange, error)
}

// HistoryReader reads a user's turns from the local store.
type HistoryReader interface {
	ReadHistory(ctx context.Context, userID string) ([]models.Turn, error)
}

// Reconciler selects one tier as the source of a user's history.
// The ledger wins whenever it returns any entry; the tiers are never merged.
type Reconciler struct {
	ledger LedgerReader
	local  HistoryReader
	logger *slog.Logger
}

// NewReconciler creates a reconciler. ledger may be nil, in which case only
// the local store is read.
func NewReconciler(ledger LedgerReader, local HistoryReader, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{ledger: ledger, local: local, logger: logger}
}

// LoadHistory returns the user's history and the tier it came from.
// A failing ledger read falls back to the local store.
func (r *Reconciler) LoadHistory(ctx context.Context, userID string) ([]models.Exchange, Source, error) {
	if r.ledger != nil {
		entries, err := r.ledger.FetchHistory(ctx, userID)
		switch {
		case err != nil:
			r.logger.Warn("ledger history unavailable, using local store", "user_id", userID, "error", err)
		case len(entries) > 0:
			r.logger.Debug("history loaded", "user_id", userID, "source", SourceLedger, "entries", len(entries))
			return entries, SourceLedger, nil
		}
	}

	turns, err := r.local.ReadHistory(ctx, userID)
	if err != nil {
		return []models.Exchange{}, SourceLocal, err
	}
	r.logger.Debug("history loaded", "user_id", userID, "source", SourceLocal, "entries", len(turns))
	return models.Exchanges(turns), SourceLocal, nil
}
