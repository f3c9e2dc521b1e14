package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			endpoint_id TEXT PRIMARY KEY,
			addr TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS processed (
			msg_id TEXT PRIMARY KEY,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS acks (
			msg_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SetSession(ctx context.Context, endpointID, addr string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (endpoint_id, addr, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(endpoint_id) DO UPDATE SET addr = excluded.addr, updated_at = excluded.updated_at`,
		endpointID, addr, time.Now().UnixMilli())
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, endpointID string) (string, error) {
	var addr string
	err := s.db.QueryRowContext(ctx, `SELECT addr FROM sessions WHERE endpoint_id = ?`, endpointID).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return addr, err
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, endpointID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE endpoint_id = ?`, endpointID)
	return err
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, msgID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed WHERE msg_id = ? AND expires_at > ?`,
		msgID, time.Now().UnixMilli()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, msgID string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed (msg_id, expires_at) VALUES (?, ?)
		 ON CONFLICT(msg_id) DO UPDATE SET expires_at = excluded.expires_at`,
		msgID, time.Now().Add(ttl).UnixMilli())
	return err
}

func (s *SQLiteStore) SetAckStatus(ctx context.Context, msgID, status string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO acks (msg_id, status, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(msg_id) DO UPDATE SET status = excluded.status, expires_at = excluded.expires_at`,
		msgID, status, time.Now().Add(ttl).UnixMilli())
	return err
}

func (s *SQLiteStore) AckStatus(ctx context.Context, msgID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM acks WHERE msg_id = ? AND expires_at > ?`,
		msgID, time.Now().UnixMilli()).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return status, err
}

// Prune drops expired processed ids and acks.
func (s *SQLiteStore) Prune(ctx context.Context) error {
	now := time.Now().UnixMilli()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM processed WHERE expires_at <= ?`, now); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM acks WHERE expires_at <= ?`, now)
	return err
}

// PruneEvery runs Prune every interval until ctx is done.
func (s *SQLiteStore) PruneEvery(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Prune(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("prune sqlite store failed", "err", err)
			}
		}
	}
}
