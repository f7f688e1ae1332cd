package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/scrt-agent/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteSchema creates the conversation log and trading state tables.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	message TEXT NOT NULL,
	response TEXT NOT NULL,
	timestamp INTEGER NOT NULL -- unix nanoseconds
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, timestamp);

CREATE TABLE IF NOT EXISTS trading_state (
	user_id TEXT PRIMARY KEY,
	convinced INTEGER DEFAULT 0 -- 0 not convinced, 1 convinced
);
`

// SQLiteStore is the embedded single-writer Store.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens the database file at path and ensures the schema exists.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", "error", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", "error", err)
	}

	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// AppendTurn inserts one conversation turn.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn models.Turn) error {
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, message, response, timestamp) VALUES (?, ?, ?, ?)`,
		turn.UserID, turn.Message, turn.Response, ts.UnixNano(),
	)
	if err != nil {
		return storageError("append turn", err)
	}
	return nil
}

// History returns the user's turns ascending by timestamp, ties by insertion order.
func (s *SQLiteStore) History(ctx context.Context, userID string) ([]models.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, timestamp
		 FROM conversations
		 WHERE user_id = ?
		 ORDER BY timestamp ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, storageError("read history", err)
	}
	defer rows.Close()

	turns := []models.Turn{}
	for rows.Next() {
		var t models.Turn
		var ts int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Message, &t.Response, &ts); err != nil {
			return nil, storageError("scan history", err)
		}
		t.Timestamp = time.Unix(0, ts)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("read history", err)
	}
	return turns, nil
}

// Convinced returns the trading flag, false when the user has no row.
func (s *SQLiteStore) Convinced(ctx context.Context, userID string) (bool, error) {
	var convinced int
	err := s.db.QueryRowContext(ctx,
		`SELECT convinced FROM trading_state WHERE user_id = ?`, userID,
	).Scan(&convinced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageError("read trading state", err)
	}
	return convinced == 1, nil
}

// SetConvinced upserts the flag to true.
func (s *SQLiteStore) SetConvinced(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trading_state (user_id, convinced) VALUES (?, 1)
		 ON CONFLICT(user_id) DO UPDATE SET convinced = 1`,
		userID,
	)
	if err != nil {
		return storageError("update trading state", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close(_ context.Context) error {
	s.logger.Info("closing sqlite store", "path", s.path)
	return s.db.Close()
}
