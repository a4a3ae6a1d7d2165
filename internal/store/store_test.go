package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roqcodes/ZyraClient/internal/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "zyra_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndLoadMessages(t *testing.T) {
	s := openTestStore(t)

	msgs := []session.Message{
		{SenderType: session.SenderUser, Text: "hi", Read: true},
		{SenderType: session.SenderAssistant, Text: "hello, how can I help?", Read: false},
		{SenderType: session.SenderUser, Text: "show me socks", Read: true},
	}
	for i := range msgs {
		require.NoError(t, s.InsertMessage("sess-1", &msgs[i]))
		assert.NotEmpty(t, msgs[i].ID, "id assigned on insert")
	}

	loaded, err := s.MessagesBySession("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, msg := range loaded {
		assert.Equal(t, msgs[i].Text, msg.Text, "creation order preserved")
		assert.Equal(t, msgs[i].SenderType, msg.SenderType)
		assert.NotEmpty(t, msg.Timestamp)
	}
}

func TestMessagesIsolatedBySession(t *testing.T) {
	s := openTestStore(t)

	a := session.Message{SenderType: session.SenderUser, Text: "a", Read: true}
	b := session.Message{SenderType: session.SenderUser, Text: "b", Read: true}
	require.NoError(t, s.InsertMessage("sess-a", &a))
	require.NoError(t, s.InsertMessage("sess-b", &b))

	loaded, err := s.MessagesBySession("sess-a")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a", loaded[0].Text)
}

func TestMarkSessionRead(t *testing.T) {
	s := openTestStore(t)

	unreadReply := session.Message{SenderType: session.SenderAssistant, Text: "streamed reply", Read: false}
	require.NoError(t, s.InsertMessage("sess-1", &unreadReply))

	unread, err := s.SessionUnread("sess-1")
	require.NoError(t, err)
	assert.True(t, unread, "assistant insert flags the session unread")

	require.NoError(t, s.MarkSessionRead("sess-1"))

	unread, err = s.SessionUnread("sess-1")
	require.NoError(t, err)
	assert.False(t, unread)

	loaded, err := s.MessagesBySession("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Read)
}

func TestSessionUnreadUnknownSession(t *testing.T) {
	s := openTestStore(t)
	unread, err := s.SessionUnread("missing")
	require.NoError(t, err)
	assert.False(t, unread)
}

func TestAppState(t *testing.T) {
	s := openTestStore(t)

	value, err := s.GetState("shopDomain")
	require.NoError(t, err)
	assert.Equal(t, "", value, "missing key reads as empty")

	require.NoError(t, s.SetState("shopDomain", "demo.myshopify.com"))
	value, err = s.GetState("shopDomain")
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", value)

	// Overwrite replaces the previous value.
	require.NoError(t, s.SetState("shopDomain", "other.myshopify.com"))
	value, err = s.GetState("shopDomain")
	require.NoError(t, err)
	assert.Equal(t, "other.myshopify.com", value)
}
