// Package chatlog provides the SQLite chat transcript store.
// Clean Architecture: Adapter implementing ports.ChatLogStore with
// SQLite-based persistence.
package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// SQLiteStore persists chat exchanges and feedback.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the chat history database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/chat_history.db"
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

// initSchema creates the necessary tables. Feedback rows are copied
// into per-label tables so labeled examples survive a history clear.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		feedback TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS good_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS bad_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save appends one exchange and returns its row id.
func (s *SQLiteStore) Save(ctx context.Context, userMessage, botResponse string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_message, bot_response) VALUES (?, ?)`,
		userMessage, botResponse,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading insert id: %w", err)
	}
	return id, nil
}

// RecordFeedback labels a stored exchange and copies it into the
// matching feedback table. Only "good" and "bad" are accepted.
func (s *SQLiteStore) RecordFeedback(ctx context.Context, messageID int64, feedback string) error {
	if feedback != "good" && feedback != "bad" {
		return fmt.Errorf("invalid feedback %q", feedback)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var userMessage, botResponse string
	err = tx.QueryRowContext(ctx,
		`SELECT user_message, bot_response FROM chat_history WHERE id = ?`, messageID,
	).Scan(&userMessage, &botResponse)
	if err == sql.ErrNoRows {
		return fmt.Errorf("message %d not found", messageID)
	}
	if err != nil {
		return fmt.Errorf("loading message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_history SET feedback = ? WHERE id = ?`, feedback, messageID,
	); err != nil {
		return fmt.Errorf("updating message: %w", err)
	}

	table := "good_feedback"
	if feedback == "bad" {
		table = "bad_feedback"
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_message, bot_response) VALUES (?, ?)`, table),
		userMessage, botResponse,
	); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}

	return tx.Commit()
}

// History returns the most recent exchanges, newest first.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]entities.ChatRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_message, bot_response, COALESCE(feedback, ''), timestamp
		 FROM chat_history ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []entities.ChatRecord
	for rows.Next() {
		var r entities.ChatRecord
		if err := rows.Scan(&r.ID, &r.UserMessage, &r.BotResponse, &r.Feedback, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Clear deletes the transcript and returns the number of rows removed.
// Feedback tables are kept.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history`)
	if err != nil {
		return 0, fmt.Errorf("clearing history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return n, nil
}

// Count returns the number of stored exchanges.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
