// Package store is the unified persistent layer: one embedded SQLite
// database holding per-task memory, cross-task session history,
// per-provider credentials, and small key/value configuration. All four
// concerns share one *sql.DB behind a single mutex, mirroring the
// teacher's one-file-one-mutex backend shape.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/assapir/golem/internal/oauth"
	"github.com/assapir/golem/pkg/golem"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL DEFAULT (datetime('now')),
	entry     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_history (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL DEFAULT (datetime('now')),
	task      TEXT NOT NULL,
	answer    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS credentials (
	provider TEXT PRIMARY KEY,
	data     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the single embedded database backing memory, session history,
// credentials, and config. Open the same path from every caller that
// needs to share state; ":memory:" gives an ephemeral, process-local
// database, useful for tests and one-shot invocations.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or reuses the database file at path and ensures its
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// fromDB wraps an already-open *sql.DB without running schema migration,
// so tests can substitute a sqlmock connection.
func fromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- Memory ---

// Store appends an entry to the per-task memory log.
func (s *Store) Store(ctx context.Context, entry golem.MemoryEntry) error {
	payload, err := entry.MarshalForStore()
	if err != nil {
		return fmt.Errorf("store: encoding memory entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, "INSERT INTO memory (entry) VALUES (?)", string(payload))
	if err != nil {
		return fmt.Errorf("store: inserting memory entry: %w", err)
	}
	return nil
}

// History returns every entry in the per-task memory log, oldest first.
func (s *Store) History(ctx context.Context) ([]golem.MemoryEntry, error) {
	s.mu.Lock()
	rows, err := s.db.QueryContext(ctx, "SELECT entry FROM memory ORDER BY id ASC")
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("store: querying memory: %w", err)
	}
	defer rows.Close()
	return scanMemoryEntries(rows)
}

// Recall returns every memory entry whose serialized JSON contains query
// as a substring, oldest first. This is a simple LIKE scan, not a
// semantic search; it's adequate for the small per-task logs this store
// holds and keeps the store dependency-free of a vector index.
func (s *Store) Recall(ctx context.Context, query string) ([]golem.MemoryEntry, error) {
	pattern := "%" + query + "%"
	s.mu.Lock()
	rows, err := s.db.QueryContext(ctx, "SELECT entry FROM memory WHERE entry LIKE ? ORDER BY id ASC", pattern)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("store: recalling from memory: %w", err)
	}
	defer rows.Close()
	return scanMemoryEntries(rows)
}

func scanMemoryEntries(rows *sql.Rows) ([]golem.MemoryEntry, error) {
	var entries []golem.MemoryEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scanning memory row: %w", err)
		}
		var entry golem.MemoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("store: decoding memory entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear wipes the per-task memory log.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM memory"); err != nil {
		return fmt.Errorf("store: clearing memory: %w", err)
	}
	return nil
}

// --- Session history ---

// StoreSession appends a completed (task, answer) pair to the cross-task
// session log.
func (s *Store) StoreSession(ctx context.Context, entry golem.SessionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "INSERT INTO session_history (task, answer) VALUES (?, ?)", entry.Task, entry.Answer)
	if err != nil {
		return fmt.Errorf("store: inserting session entry: %w", err)
	}
	return nil
}

// SessionHistory returns the most recent limit session entries, oldest
// first within that window.
func (s *Store) SessionHistory(ctx context.Context, limit int) ([]golem.SessionEntry, error) {
	const query = `
		SELECT task, answer FROM (
			SELECT task, answer, id FROM session_history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`

	s.mu.Lock()
	rows, err := s.db.QueryContext(ctx, query, limit)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("store: querying session history: %w", err)
	}
	defer rows.Close()

	var entries []golem.SessionEntry
	for rows.Next() {
		var e golem.SessionEntry
		if err := rows.Scan(&e.Task, &e.Answer); err != nil {
			return nil, fmt.Errorf("store: scanning session row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearSession wipes the cross-task session log.
func (s *Store) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session_history"); err != nil {
		return fmt.Errorf("store: clearing session history: %w", err)
	}
	return nil
}

// --- Credentials ---

// SetCredential upserts the credential for a provider.
func (s *Store) SetCredential(ctx context.Context, provider string, cred golem.Credential) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("store: encoding credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO credentials (provider, data) VALUES (?, ?)
		 ON CONFLICT(provider) DO UPDATE SET data = excluded.data`,
		provider, string(payload))
	if err != nil {
		return fmt.Errorf("store: upserting credential: %w", err)
	}
	return nil
}

// GetCredential returns the stored credential for a provider, or
// (zero, false, nil) if none is stored.
func (s *Store) GetCredential(ctx context.Context, provider string) (golem.Credential, bool, error) {
	s.mu.Lock()
	row := s.db.QueryRowContext(ctx, "SELECT data FROM credentials WHERE provider = ?", provider)
	s.mu.Unlock()

	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return golem.Credential{}, false, nil
		}
		return golem.Credential{}, false, fmt.Errorf("store: querying credential: %w", err)
	}

	var cred golem.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return golem.Credential{}, false, fmt.Errorf("store: decoding credential: %w", err)
	}
	return cred, true, nil
}

// RemoveCredential deletes a provider's stored credential, if any.
func (s *Store) RemoveCredential(ctx context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE provider = ?", provider); err != nil {
		return fmt.Errorf("store: removing credential: %w", err)
	}
	return nil
}

// ResolveAPIKey returns the usable secret for a provider: a stored
// API key, a stored OAuth access token (refreshed first if expired), or
// finally envValue, the caller-supplied environment variable contents.
// An empty envValue with nothing stored returns ("", false, nil).
func (s *Store) ResolveAPIKey(ctx context.Context, provider, envValue string) (string, bool, error) {
	cred, ok, err := s.GetCredential(ctx, provider)
	if err != nil {
		return "", false, err
	}
	if ok {
		switch cred.Kind {
		case golem.CredentialAPIKey:
			return cred.Key, true, nil
		case golem.CredentialOAuth:
			if cred.IsExpired(nowMs()) {
				refreshed, err := oauth.RefreshToken(ctx, cred.Refresh)
				if err != nil {
					return "", false, fmt.Errorf("store: refreshing oauth token: %w", err)
				}
				if err := s.SetCredential(ctx, provider, refreshed); err != nil {
					return "", false, err
				}
				cred = refreshed
			}
			return cred.Access, true, nil
		}
	}

	if envValue != "" {
		return envValue, true, nil
	}
	return "", false, nil
}

func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// --- Config ---

// SetConfigValue upserts a config key/value pair.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("store: upserting config value: %w", err)
	}
	return nil
}

// GetConfigValue returns a config value, or ("", false, nil) if unset.
func (s *Store) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	row := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key)
	s.mu.Unlock()

	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: querying config value: %w", err)
	}
	return value, true, nil
}

// RemoveConfigValue deletes a config key. A no-op if it isn't set.
func (s *Store) RemoveConfigValue(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM config WHERE key = ?", key); err != nil {
		return fmt.Errorf("store: removing config value: %w", err)
	}
	return nil
}
