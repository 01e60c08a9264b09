package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps session values in a local sqlite file so they survive
// between invocations of the client until the session is ended.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	mu sync.RWMutex
	id string
}

// OpenSQLite opens (or creates) the database at dbPath and resumes the most
// recent open session, starting a new one when none exists.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, errors.New("session db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping session database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize session schema: %w", err)
	}
	if err := s.resume(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		ended_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_open ON sessions(started_at) WHERE ended_at IS NULL;

	CREATE TABLE IF NOT EXISTS session_values (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, key)
	);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) resume(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id FROM sessions
		WHERE ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`)

	var id string
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return s.start(ctx)
	}
	if err != nil {
		return fmt.Errorf("resume session: %w", err)
	}
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) start(ctx context.Context) error {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at) VALUES (?, ?)`,
		id, s.now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
	return nil
}

func (s *SQLiteStore) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		s.ID(), key,
	)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session value %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value string) error {
	query := `
	INSERT INTO session_values (session_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, s.ID(), key, value, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("set session value %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
		s.ID(), key,
	); err != nil {
		return fmt.Errorf("delete session value %s: %w", key, err)
	}
	return nil
}

// End removes the current session's values, marks it ended and starts a new
// session.
func (s *SQLiteStore) End(ctx context.Context) error {
	id := s.ID()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin end session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("clear session values: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE session_id = ?`, s.now().UnixMilli(), id); err != nil {
		return fmt.Errorf("mark session ended: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit end session: %w", err)
	}
	return s.start(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
