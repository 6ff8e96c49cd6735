// SQLite session storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStorage implements ContextStorage backed by a SQLite file.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// The pragma makes the schema's ON DELETE CASCADE effective.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			context TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			turn_index INTEGER NOT NULL,
			query TEXT NOT NULL,
			summary TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE,
			UNIQUE(session_id, turn_index)
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session
		ON turns(session_id, turn_index);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SqliteStorage) ensureSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (session_id) VALUES (?)",
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure session: %w", err)
	}
	return nil
}

// SaveContext stores the accumulated context text for a session.
func (s *SqliteStorage) SaveContext(ctx context.Context, sessionID string, contextText string) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET context = ?, updated_at = datetime('now') WHERE session_id = ?",
		contextText, sessionID)
	if err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}
	return nil
}

// LoadContext returns the accumulated context, "" for unknown sessions.
func (s *SqliteStorage) LoadContext(ctx context.Context, sessionID string) (string, error) {
	var contextText string
	err := s.db.QueryRowContext(ctx,
		"SELECT context FROM sessions WHERE session_id = ?",
		sessionID).Scan(&contextText)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load context: %w", err)
	}
	return contextText, nil
}

// AppendTurn records one completed exchange for a session.
func (s *SqliteStorage) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, turn_index, query, summary)
		VALUES (?, (SELECT COALESCE(MAX(turn_index), -1) + 1 FROM turns WHERE session_id = ?), ?, ?)`,
		sessionID, sessionID, turn.Query, turn.Summary)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// LoadTurns returns all recorded turns for a session in order.
func (s *SqliteStorage) LoadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT query, summary FROM turns WHERE session_id = ? ORDER BY turn_index ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{} // Start with empty slice, not nil
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Query, &turn.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	return turns, nil
}

// Delete removes a session; its turns go with it via ON DELETE CASCADE.
func (s *SqliteStorage) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions lists all session IDs, most recently updated first.
func (s *SqliteStorage) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{} // Start with empty slice, not nil
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Exists checks if a session exists.
func (s *SqliteStorage) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE session_id = ?",
		sessionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return count > 0, nil
}

// Verify SqliteStorage implements ContextStorage
var _ ContextStorage = (*SqliteStorage)(nil)
