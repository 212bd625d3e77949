// Package session persists login state and the cached thread list in a
// local SQLite database.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"docnexus/internal/domain"
)

const (
	keyToken      = "token"
	keyUsername   = "username"
	keyLastThread = "last_thread"
)

// Store implements domain.TokenStore and domain.ThreadCache using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ domain.TokenStore  = (*Store)(nil)
	_ domain.ThreadCache = (*Store)(nil)
)

// Open opens (or creates) the database at path and runs the schema
// migration. The parent directory is created with owner-only permissions.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, domain.NewDomainError("session.open", domain.ErrSessionStore, err.Error())
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.NewDomainError("session.open", domain.ErrSessionStore, err.Error())
	}
	// Pragmas are per connection; one connection keeps them in force.
	db.SetMaxOpenConns(1)
	// A CLI process and the TUI may share the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, domain.NewDomainError("session.open", domain.ErrSessionStore, fmt.Sprintf("set WAL mode: %v", err))
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, domain.NewDomainError("session.open", domain.ErrSessionStore, fmt.Sprintf("set busy timeout: %v", err))
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, domain.NewDomainError("session.open", domain.ErrSessionStore, fmt.Sprintf("migrate: %v", err))
	}
	return &Store{db: db, now: time.Now}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS threads (
		id       TEXT PRIMARY KEY,
		title    TEXT NOT NULL,
		date     TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	)`,
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", domain.NewDomainError("session.get", domain.ErrSessionStore, err.Error())
	}
	return v, nil
}

func (s *Store) put(ctx context.Context, tx *sql.Tx, key, value string) error {
	const q = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	var err error
	ts := s.now().UTC().Format(time.RFC3339Nano)
	if tx != nil {
		_, err = tx.ExecContext(ctx, q, key, value, ts)
	} else {
		_, err = s.db.ExecContext(ctx, q, key, value, ts)
	}
	return err
}

// Token returns the stored access token, or "" when logged out. It also
// serves as the API client's token source.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.get(ctx, keyToken)
}

// Username returns the name of the logged-in user, or "".
func (s *Store) Username(ctx context.Context) (string, error) {
	return s.get(ctx, keyUsername)
}

// SaveToken stores the token and the user it belongs to.
func (s *Store) SaveToken(ctx context.Context, token, username string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDomainError("session.save_token", domain.ErrSessionStore, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.put(ctx, tx, keyToken, token); err != nil {
		return domain.NewDomainError("session.save_token", domain.ErrSessionStore, err.Error())
	}
	if err := s.put(ctx, tx, keyUsername, username); err != nil {
		return domain.NewDomainError("session.save_token", domain.ErrSessionStore, err.Error())
	}
	if err := tx.Commit(); err != nil {
		return domain.NewDomainError("session.save_token", domain.ErrSessionStore, err.Error())
	}
	return nil
}

// ClearToken logs out: the token, username, last thread and cached thread
// list all belong to the previous user and are removed.
func (s *Store) ClearToken(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDomainError("session.clear_token", domain.ErrSessionStore, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key IN (?, ?, ?)", keyToken, keyUsername, keyLastThread); err != nil {
		return domain.NewDomainError("session.clear_token", domain.ErrSessionStore, err.Error())
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM threads"); err != nil {
		return domain.NewDomainError("session.clear_token", domain.ErrSessionStore, err.Error())
	}
	if err := tx.Commit(); err != nil {
		return domain.NewDomainError("session.clear_token", domain.ErrSessionStore, err.Error())
	}
	return nil
}

// LastThread returns the id of the thread open when the TUI last exited.
func (s *Store) LastThread(ctx context.Context) (string, error) {
	return s.get(ctx, keyLastThread)
}

// SaveLastThread records the open thread. An empty id clears it.
func (s *Store) SaveLastThread(ctx context.Context, id string) error {
	var err error
	if id == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", keyLastThread)
	} else {
		err = s.put(ctx, nil, keyLastThread, id)
	}
	if err != nil {
		return domain.NewDomainError("session.save_last_thread", domain.ErrSessionStore, err.Error())
	}
	return nil
}

// SaveThreads replaces the cached history list, preserving order.
func (s *Store) SaveThreads(ctx context.Context, threads []domain.ThreadSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewDomainError("session.save_threads", domain.ErrSessionStore, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM threads"); err != nil {
		return domain.NewDomainError("session.save_threads", domain.ErrSessionStore, err.Error())
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO threads (id, title, date, position) VALUES (?, ?, ?, ?)")
	if err != nil {
		return domain.NewDomainError("session.save_threads", domain.ErrSessionStore, err.Error())
	}
	defer stmt.Close()

	for i, t := range threads {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Title, t.Date, i); err != nil {
			return domain.NewDomainError("session.save_threads", domain.ErrSessionStore, err.Error())
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.NewDomainError("session.save_threads", domain.ErrSessionStore, err.Error())
	}
	return nil
}

// Threads returns the cached history list in saved order.
func (s *Store) Threads(ctx context.Context) ([]domain.ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, date FROM threads ORDER BY position")
	if err != nil {
		return nil, domain.NewDomainError("session.threads", domain.ErrSessionStore, err.Error())
	}
	defer rows.Close()

	var out []domain.ThreadSummary
	for rows.Next() {
		var t domain.ThreadSummary
		if err := rows.Scan(&t.ID, &t.Title, &t.Date); err != nil {
			return nil, domain.NewDomainError("session.threads", domain.ErrSessionStore, err.Error())
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDomainError("session.threads", domain.ErrSessionStore, err.Error())
	}
	return out, nil
}
