// Package sqlite implements a durable logger.Sink backed by SQLite.
// The database is opened in WAL mode with a busy timeout, and the
// schema is migrated at New with CREATE TABLE IF NOT EXISTS.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/logger"
)

// Store is a durable logger.Sink.
type Store struct {
	db *sql.DB
}

var _ logger.Sink = (*Store)(nil)

// New opens (or creates) a SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS log_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		category TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tool_name TEXT NOT NULL DEFAULT '',
		tool_args TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_log_entries_category ON log_entries(category);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append persists entry. The in-memory EnhancedLogger ID is not reused;
// SQLite assigns its own autoincrement id.
func (s *Store) Append(ctx context.Context, entry domain.EnhancedLogEntry) error {
	argsJSON, err := json.Marshal(entry.ToolArgs)
	if err != nil {
		return fmt.Errorf("marshal tool args: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO log_entries (timestamp, category, message, description, tool_name, tool_args)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.Category, entry.Message, entry.Description, entry.ToolName, string(argsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// Recent returns the n most recently inserted entries, oldest first.
func (s *Store) Recent(ctx context.Context, n int) ([]domain.EnhancedLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, category, message, description, tool_name, tool_args
		 FROM log_entries ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent log entries: %w", err)
	}
	defer rows.Close()

	var out []domain.EnhancedLogEntry
	for rows.Next() {
		var e domain.EnhancedLogEntry
		var argsJSON string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Category, &e.Message, &e.Description, &e.ToolName, &argsJSON); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if argsJSON != "" {
			_ = json.Unmarshal([]byte(argsJSON), &e.ToolArgs)
		}
		out = append(out, e)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
