package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/roqcodes/ZyraClient/internal/session"
)

// Store is the local SQLite persistence layer: chat transcripts plus a
// small key/value table for app state such as the shop domain.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err = s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS chat_sessions (
        id TEXT PRIMARY KEY,
        has_unread_messages BOOLEAN DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS chat_messages (
        id TEXT PRIMARY KEY, -- UUID
        session_id TEXT NOT NULL,
        sender_type TEXT NOT NULL CHECK (sender_type IN ('user', 'assistant')),
        text TEXT NOT NULL,
        read BOOLEAN DEFAULT FALSE,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES chat_sessions (id)
    );

    CREATE TABLE IF NOT EXISTS app_state (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// InsertMessage appends a message to a session's transcript. The session
// row is created on first write. A message ID is assigned when empty.
func (s *Store) InsertMessage(sessionID string, msg *session.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(
		"INSERT OR IGNORE INTO chat_sessions (id) VALUES (?)", sessionID,
	); err != nil {
		return fmt.Errorf("failed to ensure session row: %w", err)
	}

	if _, err = tx.Exec(
		"INSERT INTO chat_messages (id, session_id, sender_type, text, read, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, sessionID, msg.SenderType, msg.Text, msg.Read, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if msg.SenderType == session.SenderAssistant && !msg.Read {
		if _, err = tx.Exec(
			"UPDATE chat_sessions SET has_unread_messages = TRUE WHERE id = ?", sessionID,
		); err != nil {
			return fmt.Errorf("failed to flag unread messages: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MessagesBySession returns a session's messages in creation order.
func (s *Store) MessagesBySession(sessionID string) ([]session.Message, error) {
	rows, err := s.db.Query(
		"SELECT id, sender_type, text, read, created_at FROM chat_messages WHERE session_id = ? ORDER BY created_at ASC, rowid ASC",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []session.Message
	for rows.Next() {
		var msg session.Message
		var createdAt time.Time
		if err := rows.Scan(&msg.ID, &msg.SenderType, &msg.Text, &msg.Read, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Timestamp = createdAt.UTC().Format(time.RFC3339)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// MarkSessionRead marks all unread assistant messages in a session read
// and clears the session-level unread flag.
func (s *Store) MarkSessionRead(sessionID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec(
		"UPDATE chat_messages SET read = TRUE WHERE session_id = ? AND sender_type = ? AND read = FALSE",
		sessionID, session.SenderAssistant,
	); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	if _, err = tx.Exec(
		"UPDATE chat_sessions SET has_unread_messages = FALSE WHERE id = ?", sessionID,
	); err != nil {
		return fmt.Errorf("failed to clear unread flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SessionUnread reports whether a session has unread assistant messages.
func (s *Store) SessionUnread(sessionID string) (bool, error) {
	var unread bool
	err := s.db.QueryRow(
		"SELECT has_unread_messages FROM chat_sessions WHERE id = ?", sessionID,
	).Scan(&unread)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query session: %w", err)
	}
	return unread, nil
}

// GetState reads an app_state value. A missing key yields "".
func (s *Store) GetState(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM app_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query app state: %w", err)
	}
	return value, nil
}

// SetState writes an app_state value, replacing any previous one.
func (s *Store) SetState(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO app_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write app state: %w", err)
	}
	return nil
}
