// Package trading gates and executes the swap trade.
package trading

import "context"

// ConvictionStore persists the per-user convinced flag.
type ConvictionStore interface {
	GetConvinced(ctx context.Context, userID string) (bool, error)
	SetConvinced(ctx context.Context, userID string) error
}

// Gate is the one-way convinced switch. Unseen users start unconvinced and
// there is no way back once convinced.
type Gate struct {
	store ConvictionStore
}

// NewGate creates a gate over store.
func NewGate(store ConvictionStore) *Gate {
	return &Gate{store: store}
}

// IsConvinced reports whether the user has enabled trading.
func (g *Gate) IsConvinced(ctx context.Context, userID string) (bool, error) {
	return g.store.GetConvinced(ctx, userID)
}

// MarkConvinced enables trading for the user. Idempotent.
func (g *Gate) MarkConvinced(ctx context.Context, userID string) error {
	return g.store.SetConvinced(ctx, userID)
}
