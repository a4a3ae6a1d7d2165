package shop

import (
	"log/slog"

	"github.com/roqcodes/ZyraClient/internal/store"
)

// StateStorage adapts the SQLite app_state table to the Storage
// boundary. Failures are logged and swallowed; the resolver never
// propagates storage errors.
type StateStorage struct {
	store  *store.Store
	logger *slog.Logger
}

func NewStateStorage(st *store.Store, logger *slog.Logger) *StateStorage {
	return &StateStorage{store: st, logger: logger}
}

func (s *StateStorage) Get(key string) string {
	value, err := s.store.GetState(key)
	if err != nil {
		s.logger.Error("failed to read app state", "key", key, "error", err)
		return ""
	}
	return value
}

func (s *StateStorage) Set(key, value string) {
	if err := s.store.SetState(key, value); err != nil {
		s.logger.Error("failed to write app state", "key", key, "error", err)
	}
}
