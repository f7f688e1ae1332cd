package db

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/scrt-agent/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// conversationRow is the SurrealDB shape of a conversation turn.
type conversationRow struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}

type tradingStateRow struct {
	Convinced bool `json:"convinced"`
}

// SurrealStore is a Store backed by a SurrealDB Client.
type SurrealStore struct {
	client *Client
	seq    atomic.Int64
}

// OpenSurreal connects to SurrealDB and initializes the schema.
func OpenSurreal(ctx context.Context, cfg SurrealConfig, logger *slog.Logger) (*SurrealStore, error) {
	c, err := NewClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.InitSchema(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	s := &SurrealStore{client: c}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

// AppendTurn creates one conversation record.
func (s *SurrealStore) AppendTurn(ctx context.Context, turn models.Turn) error {
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := surrealdb.Query[any](ctx, s.client.DB(), `
		CREATE conversation CONTENT {
			user_id: $user_id,
			message: $message,
			response: $response,
			timestamp: $timestamp,
			seq: $seq
		}
	`, map[string]any{
		"user_id":   turn.UserID,
		"message":   turn.Message,
		"response":  turn.Response,
		"timestamp": ts.UTC(),
		"seq":       s.seq.Add(1),
	})
	if err != nil {
		return storageError("append turn", wrapQueryError(err))
	}
	return nil
}

// History returns the user's turns ascending by timestamp.
func (s *SurrealStore) History(ctx context.Context, userID string) ([]models.Turn, error) {
	results, err := surrealdb.Query[[]conversationRow](ctx, s.client.DB(), `
		SELECT user_id, message, response, timestamp, seq
		FROM conversation
		WHERE user_id = $user_id
		ORDER BY timestamp ASC, seq ASC
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, storageError("read history", wrapQueryError(err))
	}

	turns := []models.Turn{}
	if results == nil || len(*results) == 0 {
		return turns, nil
	}
	for _, row := range (*results)[0].Result {
		turns = append(turns, models.Turn{
			UserID:    row.UserID,
			Message:   row.Message,
			Response:  row.Response,
			Timestamp: row.Timestamp,
		})
	}
	return turns, nil
}

// Convinced returns the trading flag, false when the user has no record.
func (s *SurrealStore) Convinced(ctx context.Context, userID string) (bool, error) {
	results, err := surrealdb.Query[[]tradingStateRow](ctx, s.client.DB(), `
		SELECT convinced FROM type::record("trading_state", $user_id)
	`, map[string]any{"user_id": userID})
	if err != nil {
		return false, storageError("read trading state", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return false, nil
	}
	return (*results)[0].Result[0].Convinced, nil
}

// SetConvinced upserts the flag to true.
func (s *SurrealStore) SetConvinced(ctx context.Context, userID string) error {
	_, err := surrealdb.Query[any](ctx, s.client.DB(), `
		UPSERT type::record("trading_state", $user_id) SET
			user_id = $user_id,
			convinced = true
	`, map[string]any{"user_id": userID})
	if err != nil {
		return storageError("update trading state", wrapQueryError(err))
	}
	return nil
}

// Close closes the underlying connection.
func (s *SurrealStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
