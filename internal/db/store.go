// Package db provides the local relational persistence tier: an embedded SQLite
// store, an optional SurrealDB store, and a lazily opened shared handle.
package db

import (
	"context"

	"github.com/raphaelgruber/scrt-agent/internal/models"
)

// Store persists conversation turns and the per-user trading flag.
type Store interface {
	// AppendTurn inserts one conversation turn.
	AppendTurn(ctx context.Context, turn models.Turn) error
	// History returns a user's turns ascending by timestamp. Empty if none.
	History(ctx context.Context, userID string) ([]models.Turn, error)
	// Convinced returns the user's flag, false when no row exists.
	Convinced(ctx context.Context, userID string) (bool, error)
	// SetConvinced upserts the user's flag to true. Idempotent.
	SetConvinced(ctx context.Context, userID string) error
	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
