package usecase

import (
	"context"
	"testing"
	"time"

	boarddomain "mailboard-backend/internal/board/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveToColumnLocalCommit(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addColumn("u1", "inbox", "Inbox", 0, boarddomain.StringPtr("INBOX"))
	env.addColumn("u1", "todo", "To Do", 1, boarddomain.StringPtr("IMPORTANT"))
	env.addCached("u1", "m1", "inbox", baseTime)

	moved, err := env.uc.MoveToColumn(context.Background(), "u1", "m1", "todo", boarddomain.StringPtr("IMPORTANT"))
	require.NoError(t, err)
	assert.Equal(t, "todo", moved.Status)

	stored, _ := env.cached.GetByMessageID("u1", "m1")
	assert.Equal(t, "todo", stored.Status)

	require.Len(t, env.provider.modifyCalls, 1)
	call := env.provider.modifyCalls[0]
	assert.Equal(t, "m1", call.messageID)
	assert.Equal(t, []string{"IMPORTANT"}, call.add)
	assert.Contains(t, call.remove, "INBOX")
	assert.NotContains(t, call.remove, "IMPORTANT")
}

func TestMoveToColumnNilLabelSkipsRemote(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addColumn("u1", "inbox", "Inbox", 0, boarddomain.StringPtr("INBOX"))
	env.addColumn("u1", "local", "Local Only", 1, nil)
	env.addCached("u1", "m1", "inbox", baseTime)

	moved, err := env.uc.MoveToColumn(context.Background(), "u1", "m1", "local", nil)
	require.NoError(t, err)
	assert.Equal(t, "local", moved.Status)
	assert.Empty(t, env.provider.modifyCalls)
}

func TestMoveToColumnArchive(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addColumn("u1", "inbox", "Inbox", 0, boarddomain.StringPtr("INBOX"))
	env.addColumn("u1", "todo", "To Do", 1, boarddomain.StringPtr("IMPORTANT"))
	env.addColumn("u1", "archive", "Archive", 2, boarddomain.StringPtr(""))
	env.addCached("u1", "m1", "inbox", baseTime)

	// Remote rejection must not roll back the local move.
	env.provider.modifyErr = assert.AnError

	moved, err := env.uc.MoveToColumn(context.Background(), "u1", "m1", "archive", boarddomain.StringPtr(""))
	require.NoError(t, err)
	assert.Equal(t, "archive", moved.Status)

	stored, _ := env.cached.GetByMessageID("u1", "m1")
	assert.Equal(t, "archive", stored.Status)

	require.Len(t, env.provider.modifyCalls, 1)
	call := env.provider.modifyCalls[0]
	assert.Empty(t, call.add)
	assert.Contains(t, call.remove, "INBOX")
	assert.Contains(t, call.remove, "IMPORTANT")
}

func TestMoveToColumnClearsSnooze(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addColumn("u1", "todo", "To Do", 0, nil)

	item := env.addCached("u1", "m1", boarddomain.StatusSnoozed, baseTime)
	item.OriginalStatus = "inbox"
	wake := time.Now().Add(time.Hour)
	item.SnoozeUntil = &wake
	require.NoError(t, env.cached.Update(item))

	moved, err := env.uc.MoveToColumn(context.Background(), "u1", "m1", "todo", nil)
	require.NoError(t, err)
	assert.Equal(t, "todo", moved.Status)
	assert.Nil(t, moved.SnoozeUntil)
	assert.Empty(t, moved.OriginalStatus)
}

func TestMoveToColumnValidation(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addColumn("u1", "inbox", "Inbox", 0, nil)
	env.addCached("u1", "m1", "inbox", baseTime)

	_, err := env.uc.MoveToColumn(context.Background(), "u1", "m1", "missing-column", nil)
	assert.ErrorIs(t, err, boarddomain.ErrInvalidInput)

	_, err = env.uc.MoveToColumn(context.Background(), "u1", "missing-message", "inbox", nil)
	assert.ErrorIs(t, err, boarddomain.ErrNotFound)

	_, err = env.uc.MoveToColumn(context.Background(), "ghost", "m1", "inbox", nil)
	assert.ErrorIs(t, err, boarddomain.ErrNotFound)
}

func TestSnoozeEmail(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	until := time.Now().Add(2 * time.Hour)
	snoozed, err := env.uc.SnoozeEmail("u1", "m1", until)
	require.NoError(t, err)
	assert.Equal(t, boarddomain.StatusSnoozed, snoozed.Status)
	assert.Equal(t, "inbox", snoozed.OriginalStatus)
	require.NotNil(t, snoozed.SnoozeUntil)
	assert.True(t, snoozed.SnoozeUntil.Equal(until))
}

func TestSnoozeEmailRejectsPast(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	_, err := env.uc.SnoozeEmail("u1", "m1", time.Now().Add(-time.Minute))
	assert.ErrorIs(t, err, boarddomain.ErrInvalidInput)
}

func TestResnoozePreservesOriginalStatus(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "todo", baseTime)

	_, err := env.uc.SnoozeEmail("u1", "m1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	// Snoozing again must not overwrite the preserved column with "snoozed".
	again, err := env.uc.SnoozeEmail("u1", "m1", time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "todo", again.OriginalStatus)
}

func TestUnsnoozeRestoresOriginalStatus(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "todo", baseTime)

	_, err := env.uc.SnoozeEmail("u1", "m1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	restored, err := env.uc.UnsnoozeEmail("u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "todo", restored.Status)
	assert.Nil(t, restored.SnoozeUntil)
	assert.Empty(t, restored.OriginalStatus)
}

func TestUnsnoozeNotSnoozedIsNoop(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	item, err := env.uc.UnsnoozeEmail("u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "inbox", item.Status)
}

func TestWakeDueSnoozesNotifies(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")

	item := env.addCached("u1", "m1", boarddomain.StatusSnoozed, baseTime)
	item.OriginalStatus = "todo"
	past := time.Now().Add(-time.Minute)
	item.SnoozeUntil = &past
	require.NoError(t, env.cached.Update(item))

	events := &fakeEventService{}
	env.uc.SetEventService(events)

	woken, err := env.uc.WakeDueSnoozes()
	require.NoError(t, err)
	assert.Equal(t, 1, woken)

	restored, _ := env.cached.GetByMessageID("u1", "m1")
	assert.Equal(t, "todo", restored.Status)

	require.Len(t, events.sent, 1)
	assert.Equal(t, "u1", events.sent[0].userID)
	assert.Equal(t, "email_update", events.sent[0].eventType)
}

func TestMarkReadSyncsRemote(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addCached("u1", "m1", "inbox", baseTime)

	item, err := env.uc.MarkRead(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.True(t, item.IsRead)

	require.Len(t, env.provider.modifyCalls, 1)
	assert.Equal(t, []string{"UNREAD"}, env.provider.modifyCalls[0].remove)

	item, err = env.uc.MarkUnread(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.False(t, item.IsRead)

	require.Len(t, env.provider.modifyCalls, 2)
	assert.Equal(t, []string{"UNREAD"}, env.provider.modifyCalls[1].add)
}
