// Package memory implements the dual-tier conversation memory: the local
// conversation store and the reconciler that picks between it and the ledger.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/raphaelgruber/scrt-agent/internal/db"
	"github.com/raphaelgruber/scrt-agent/internal/models"
)

// LocalStore is the local conversation store. It opens the underlying
// database on first use through a shared db.Lazy handle.
type LocalStore struct {
	handle *db.Lazy
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewLocalStore creates a local store over handle.
func NewLocalStore(handle *db.Lazy, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{handle: handle, logger: logger, now: time.Now}
}

// nextTimestamp returns a timestamp strictly after every earlier one from this store.
func (s *LocalStore) nextTimestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Nanosecond)
	}
	s.last = ts
	return ts
}

// Append records one turn. Failures are returned, not retried.
func (s *LocalStore) Append(ctx context.Context, userID, message, response string) error {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return err
	}
	return store.AppendTurn(ctx, models.Turn{
		UserID:    userID,
		Message:   message,
		Response:  response,
		Timestamp: s.nextTimestamp(),
	})
}

// ReadHistory returns the user's turns in ascending timestamp order.
func (s *LocalStore) ReadHistory(ctx context.Context, userID string) ([]models.Turn, error) {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	return store.History(ctx, userID)
}

// GetConvinced returns the user's trading flag, false for unseen users.
func (s *LocalStore) GetConvinced(ctx context.Context, userID string) (bool, error) {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return false, err
	}
	return store.Convinced(ctx, userID)
}

// SetConvinced sets the user's trading flag to true.
func (s *LocalStore) SetConvinced(ctx context.Context, userID string) error {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return err
	}
	return store.SetConvinced(ctx, userID)
}

// Close closes the shared handle. Safe to call more than once.
func (s *LocalStore) Close(ctx context.Context) error {
	return s.handle.Close(ctx)
}
