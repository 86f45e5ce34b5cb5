package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
)

func notificationIDs(notifs []notification.Notification) []string {
	ids := make([]string, 0, len(notifs))
	for _, n := range notifs {
		ids = append(ids, n.ID)
	}
	return ids
}

// RunNotificationRepositoryTests checks the behaviour every notification.Repository implementation shares.
// The repositories must start empty.
func RunNotificationRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Notification
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)

	notify := func(t *testing.T, userID string, typ notification.Type, data string, createdAt time.Time) notification.Notification {
		t.Helper()
		n, err := repo.CreateNotification(ctx, notification.Notification{
			UserID:    userID,
			Type:      typ,
			Data:      types.JSONText(data),
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
		return n
	}

	n1 := notify(t, jane.ID, notification.TypeFriendNewRequest, `{"request_id":"42","requestor":{"username":"john"}}`, March(1, 10, 0))
	n2 := notify(t, jane.ID, notification.TypeSystem, "", March(1, 11, 0))
	n3 := notify(t, john.ID, notification.TypeSystem, "", March(1, 12, 0))

	query := func(t *testing.T, userID string, filter notification.QueryFilter) []notification.Notification {
		t.Helper()
		filter.Clean()
		notifs, err := repo.QueryNotifications(ctx, userID, filter)
		require.NoError(t, err)
		return notifs
	}

	t.Run("create and query", func(t *testing.T) {
		_, err := uuid.Parse(n1.ID)
		assert.NoError(t, err)

		notifs := query(t, jane.ID, notification.QueryFilter{})
		require.Equal(t, []string{n2.ID, n1.ID}, notificationIDs(notifs))
		assert.Equal(t, notification.TypeSystem, notifs[0].Type)
		assert.JSONEq(t, `{}`, string(notifs[0].Data))
		assert.JSONEq(t, `{"request_id":"42","requestor":{"username":"john"}}`, string(notifs[1].Data))
		assert.False(t, notifs[1].Seen)
		assert.True(t, March(1, 10, 0).Equal(notifs[1].CreatedAt))

		assert.Equal(t, []string{n2.ID}, notificationIDs(query(t, jane.ID, notification.QueryFilter{Limit: 1})))
		assert.Equal(t, []string{n1.ID}, notificationIDs(query(t, jane.ID, notification.QueryFilter{Cursor: n2.CreatedAt})))
		assert.Equal(t, []string{n3.ID}, notificationIDs(query(t, john.ID, notification.QueryFilter{})))
	})

	t.Run("mark seen", func(t *testing.T) {
		cnt, err := repo.CountUnseen(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, cnt)

		cnt, err = repo.MarkSeen(ctx, jane.ID, []string{n1.ID, n3.ID, "lol"})
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)

		cnt, err = repo.CountUnseen(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
		cnt, err = repo.CountUnseen(ctx, john.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)

		seen, unseen := true, false
		assert.Equal(t, []string{n1.ID}, notificationIDs(query(t, jane.ID, notification.QueryFilter{Seen: &seen})))
		assert.Equal(t, []string{n2.ID}, notificationIDs(query(t, jane.ID, notification.QueryFilter{Seen: &unseen})))

		cnt, err = repo.MarkSeen(ctx, jane.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
		cnt, err = repo.MarkSeen(ctx, jane.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, cnt)

		cnt, err = repo.CountUnseen(ctx, jane.ID)
		require.NoError(t, err)
		assert.Zero(t, cnt)
	})

	t.Run("delete", func(t *testing.T) {
		err := repo.DeleteNotification(ctx, john.ID, n1.ID)
		assert.Equal(t, notification.ErrNotFound, errors.Cause(err))

		require.NoError(t, repo.DeleteNotification(ctx, jane.ID, n1.ID))
		err = repo.DeleteNotification(ctx, jane.ID, n1.ID)
		assert.Equal(t, notification.ErrNotFound, errors.Cause(err))

		assert.Equal(t, []string{n2.ID}, notificationIDs(query(t, jane.ID, notification.QueryFilter{})))
	})
}
