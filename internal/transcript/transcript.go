// Package transcript mirrors the live conversation into the local store.
// Every operation is best-effort: failures are logged and swallowed so
// that persistence problems never affect the chat itself.
package transcript

import (
	"log/slog"

	"github.com/roqcodes/ZyraClient/internal/session"
	"github.com/roqcodes/ZyraClient/internal/store"
)

// Log is the best-effort transcript adapter over the SQLite store.
type Log struct {
	store  *store.Store
	logger *slog.Logger
}

func New(st *store.Store, logger *slog.Logger) *Log {
	return &Log{store: st, logger: logger}
}

// Append persists one message to the session's transcript. A missing
// session id makes this a no-op.
func (l *Log) Append(msg session.Message, sessionID string) {
	if sessionID == "" {
		return
	}
	if err := l.store.InsertMessage(sessionID, &msg); err != nil {
		l.logger.Error("failed to save message", "session_id", sessionID, "error", err)
	}
}

// History returns the session's persisted messages in creation order,
// or nil when the session is unknown or the store fails.
func (l *Log) History(sessionID string) []session.Message {
	if sessionID == "" {
		return nil
	}
	messages, err := l.store.MessagesBySession(sessionID)
	if err != nil {
		l.logger.Error("failed to load chat history", "session_id", sessionID, "error", err)
		return nil
	}
	return messages
}

// MarkRead marks all unread assistant messages in the session read.
func (l *Log) MarkRead(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := l.store.MarkSessionRead(sessionID); err != nil {
		l.logger.Error("failed to mark messages read", "session_id", sessionID, "error", err)
	}
}
