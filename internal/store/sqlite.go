// ABOUTME: SQLite persistence for user sessions using modernc.org/sqlite
// ABOUTME: Stores turn history as JSON alongside mode/effort settings per user

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/ponder/internal/session"
)

// SQLiteStore implements session.Persistence using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			turns TEXT NOT NULL,
			mode TEXT NOT NULL,
			effort INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get loads the session for a user, or session.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*session.Session, error) {
	var (
		turnsJSON string
		mode      string
		effort    int
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT turns, mode, effort, updated_at FROM sessions WHERE user_id = ?",
		userID,
	).Scan(&turnsJSON, &mode, &effort, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	var turns []session.Turn
	if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
		return nil, fmt.Errorf("decoding turns for %s: %w", userID, err)
	}

	return &session.Session{
		UserID:    userID,
		Turns:     turns,
		Mode:      session.Mode(mode),
		Effort:    effort,
		UpdatedAt: updatedAt,
	}, nil
}

// Put upserts the full session in a single statement, so a session is
// either fully written or unchanged.
func (s *SQLiteStore) Put(ctx context.Context, sess *session.Session) error {
	turns := sess.Turns
	if turns == nil {
		turns = []session.Turn{}
	}
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encoding turns for %s: %w", sess.UserID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, turns, mode, effort, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			turns = excluded.turns,
			mode = excluded.mode,
			effort = excluded.effort,
			updated_at = excluded.updated_at
	`, sess.UserID, string(turnsJSON), string(sess.Mode), sess.Effort, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	s.logger.Debug("session persisted", "user", sess.UserID, "turns", len(sess.Turns))
	return nil
}

// Delete removes the session row for a user. Deleting a missing
// session is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
