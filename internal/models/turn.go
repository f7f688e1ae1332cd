// Package models defines the conversation and trading records shared across packages.
package models

import "time"

// Turn is one persisted (message, response) pair. Immutable once written.
type Turn struct {
	ID        int64     `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Exchange is a turn without storage metadata, as returned by history reads.
type Exchange struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// Exchange drops the storage metadata from a turn.
func (t Turn) Exchange() Exchange {
	return Exchange{Message: t.Message, Response: t.Response}
}

// Exchanges converts turns into history pairs, preserving order.
func Exchanges(turns []Turn) []Exchange {
	out := make([]Exchange, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Exchange())
	}
	return out
}

// TradingState is the per-user convinced flag. One row per user.
type TradingState struct {
	UserID    string `json:"user_id"`
	Convinced bool   `json:"convinced"`
}
