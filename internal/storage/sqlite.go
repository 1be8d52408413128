package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docfill/internal/keyword"

	_ "github.com/mattn/go-sqlite3"
)

// SessionStore persists collected input values between runs, keyed by a
// caller-chosen session name.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates or opens a SQLite database.
func NewSessionStore(path string) (*SessionStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SessionStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

func (s *SessionStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS input_values (
			session TEXT,
			key TEXT,
			value TEXT,
			updated_at TEXT,
			PRIMARY KEY (session, key)
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveValues upserts every entry of vals under the given session.
func (s *SessionStore) SaveValues(ctx context.Context, session string, vals keyword.Values) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO input_values (session, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session, key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for key, value := range vals {
		if _, err := stmt.ExecContext(ctx, session, key, value, now); err != nil {
			return fmt.Errorf("failed to save value %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// LoadValues retrieves every value stored under the given session. An
// unknown session yields an empty map, not an error.
func (s *SessionStore) LoadValues(ctx context.Context, session string) (keyword.Values, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM input_values WHERE session = ?`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vals := make(keyword.Values)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		vals[key] = value
	}
	return vals, nil
}

// DeleteSession removes every value stored under the given session.
func (s *SessionStore) DeleteSession(ctx context.Context, session string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM input_values WHERE session = ?`, session)
	return err
}

// ListSessions returns the names of all stored sessions in sorted order.
func (s *SessionStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT session FROM input_values ORDER BY session`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		sessions = append(sessions, name)
	}
	return sessions, nil
}
