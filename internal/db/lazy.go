package db

import (
	"context"
	"log/slog"
	"sync"
)

// State is the initialization state of a Lazy handle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OpenFunc opens and prepares a Store.
type OpenFunc func(ctx context.Context) (Store, error)

// openAttempt is shared by every caller that arrives while an open is in flight.
type openAttempt struct {
	done     chan struct{}
	store    Store
	err      error
	closeErr error
}

// Lazy is the process-wide store handle. The store is opened on first use, at
// most once at a time; concurrent first callers wait for the same attempt.
// A failed attempt is reported to all of its waiters and the next Get retries.
type Lazy struct {
	open   OpenFunc
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	store   Store
	attempt *openAttempt
}

// NewLazy creates an unopened handle.
func NewLazy(open OpenFunc, logger *slog.Logger) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{open: open, logger: logger}
}

// State returns the current initialization state.
func (l *Lazy) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Get returns the shared store, opening it if needed.
func (l *Lazy) Get(ctx context.Context) (Store, error) {
	l.mu.Lock()
	switch l.state {
	case StateReady:
		s := l.store
		l.mu.Unlock()
		return s, nil
	case StateClosed:
		l.mu.Unlock()
		return nil, ErrNotOpen
	case StateInitializing:
		a := l.attempt
		l.mu.Unlock()
		return l.wait(ctx, a)
	}

	a := &openAttempt{done: make(chan struct{})}
	l.attempt = a
	l.state = StateInitializing
	l.mu.Unlock()

	l.logger.Info("opening local store")
	// The open outlives the first caller's cancellation; others may be waiting on it.
	a.store, a.err = l.open(context.WithoutCancel(ctx))

	l.mu.Lock()
	l.attempt = nil
	var orphan Store
	switch {
	case a.err != nil:
		if l.state != StateClosed {
			l.state = StateUninitialized
		}
		l.logger.Error("failed to open local store", "error", a.err)
	case l.state == StateClosed:
		orphan, a.store, a.err = a.store, nil, ErrNotOpen
	default:
		l.state = StateReady
		l.store = a.store
		l.logger.Info("local store ready")
	}
	l.mu.Unlock()

	// Close ran while the open was in flight and is waiting for this store.
	if orphan != nil {
		l.logger.Info("closing local store opened during shutdown")
		a.closeErr = orphan.Close(context.WithoutCancel(ctx))
	}
	close(a.done)

	if a.err != nil {
		return nil, storageError("open", a.err)
	}
	return a.store, nil
}

func (l *Lazy) wait(ctx context.Context, a *openAttempt) (Store, error) {
	select {
	case <-a.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if a.err != nil {
		return nil, storageError("open", a.err)
	}
	return a.store, nil
}

// Close closes the store if it was opened. Later calls are no-ops. An open
// in flight is allowed to finish and its store is closed before Close returns;
// no new open starts once Close has begun.
func (l *Lazy) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return nil
	}
	a := l.attempt
	s := l.store
	l.store = nil
	l.state = StateClosed
	l.mu.Unlock()

	if a != nil {
		<-a.done
		return a.closeErr
	}
	if s == nil {
		return nil
	}
	l.logger.Info("closing local store")
	return s.Close(ctx)
}
