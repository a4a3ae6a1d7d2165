package transcript

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roqcodes/ZyraClient/internal/session"
	"github.com/roqcodes/ZyraClient/internal/store"
)

func testLog(t *testing.T) (*Log, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "transcript_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, logger), st
}

func TestAppendAndHistory(t *testing.T) {
	log, _ := testLog(t)

	log.Append(session.Message{SenderType: session.SenderUser, Text: "hi", Read: true}, "sess-1")
	log.Append(session.Message{SenderType: session.SenderAssistant, Text: "hello", Read: false}, "sess-1")

	history := log.History("sess-1")
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Text)
	assert.Equal(t, "hello", history[1].Text)
}

func TestMarkRead(t *testing.T) {
	log, st := testLog(t)

	log.Append(session.Message{SenderType: session.SenderAssistant, Text: "reply", Read: false}, "sess-1")
	log.MarkRead("sess-1")

	unread, err := st.SessionUnread("sess-1")
	require.NoError(t, err)
	assert.False(t, unread)

	history := log.History("sess-1")
	require.Len(t, history, 1)
	assert.True(t, history[0].Read)
}

func TestEmptySessionIDIsNoOp(t *testing.T) {
	log, _ := testLog(t)

	log.Append(session.Message{SenderType: session.SenderUser, Text: "hi", Read: true}, "")
	assert.Nil(t, log.History(""))
	log.MarkRead("")
}

func TestFailuresAreSwallowed(t *testing.T) {
	log, st := testLog(t)
	require.NoError(t, st.Close())

	// Every operation against the closed store must log and swallow,
	// not panic or propagate.
	log.Append(session.Message{SenderType: session.SenderUser, Text: "hi", Read: true}, "sess-1")
	assert.Nil(t, log.History("sess-1"))
	log.MarkRead("sess-1")
}
