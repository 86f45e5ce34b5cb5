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

	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

func eventIDs(events []feed.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

// RunFeedRepositoryTests checks the behaviour every feed.Repository implementation shares.
// The repositories must start empty.
func RunFeedRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Feed
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)

	newEvent := func(t *testing.T, source user.User, data string, createdAt time.Time) feed.Event {
		t.Helper()
		e, err := repo.CreateEvent(ctx, feed.Event{
			Source:    source.Summary(),
			EventType: feed.EventSessionFinished,
			Data:      types.JSONText(data),
			CreatedAt: createdAt,
		})
		require.NoError(t, err)
		return e
	}

	e1 := newEvent(t, jane, `{"category_name":"Work","duration_minutes":60}`, March(1, 10, 0))
	e2 := newEvent(t, jane, "", March(1, 11, 0))
	e3 := newEvent(t, john, `{"category_name":"Sport"}`, March(1, 12, 0))

	t.Run("create and get", func(t *testing.T) {
		_, err := uuid.Parse(e1.ID)
		assert.NoError(t, err)

		e, err := repo.GetEvent(ctx, john.ID, e1.ID)
		require.NoError(t, err)
		assert.Equal(t, "jane", e.Source.Username)
		assert.Equal(t, feed.EventSessionFinished, e.EventType)
		assert.JSONEq(t, `{"category_name":"Work","duration_minutes":60}`, string(e.Data))
		assert.True(t, March(1, 10, 0).Equal(e.CreatedAt))
		assert.NotNil(t, e.Reactions)
		assert.Empty(t, e.Reactions)

		e, err = repo.GetEvent(ctx, john.ID, e2.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(e.Data))

		_, err = repo.GetEvent(ctx, john.ID, uuid.New().String())
		assert.Equal(t, feed.ErrNotFound, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name    string
			sources []string
			filter  feed.QueryFilter
			want    []string
		}{
			{name: "most recent first", sources: []string{jane.ID, john.ID}, filter: feed.QueryFilter{Limit: 10}, want: []string{e3.ID, e2.ID, e1.ID}},
			{name: "sources", sources: []string{jane.ID}, filter: feed.QueryFilter{Limit: 10}, want: []string{e2.ID, e1.ID}},
			{name: "limit", sources: []string{jane.ID, john.ID}, filter: feed.QueryFilter{Limit: 2}, want: []string{e3.ID, e2.ID}},
			{
				name:    "cursor is exclusive",
				sources: []string{jane.ID, john.ID},
				filter:  feed.QueryFilter{Cursor: e2.CreatedAt, Limit: 10},
				want:    []string{e1.ID},
			},
			{name: "no sources", filter: feed.QueryFilter{Limit: 10}, want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				events, err := repo.QueryEvents(ctx, jane.ID, tt.sources, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, eventIDs(events))
			})
		}
	})

	t.Run("reactions", func(t *testing.T) {
		react := func(userID, emoji string, at time.Time) bool {
			added, err := repo.AddReaction(ctx, feed.Reaction{EventID: e1.ID, UserID: userID, Emoji: emoji, CreatedAt: at})
			require.NoError(t, err)
			return added
		}
		assert.True(t, react(john.ID, "👍", March(2, 10, 0)))
		assert.False(t, react(john.ID, "👍", March(2, 10, 1)))
		assert.True(t, react(jane.ID, "👍", March(2, 10, 2)))
		assert.True(t, react(john.ID, "🎉", March(2, 10, 3)))

		e, err := repo.GetEvent(ctx, jane.ID, e1.ID)
		require.NoError(t, err)
		assert.Equal(t, []feed.Reactions{
			{Emoji: "👍", Count: 2, Reacted: true},
			{Emoji: "🎉", Count: 1, Reacted: false},
		}, e.Reactions)

		events, err := repo.QueryEvents(ctx, john.ID, []string{jane.ID}, feed.QueryFilter{Limit: 10})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, []feed.Reactions{
			{Emoji: "👍", Count: 2, Reacted: true},
			{Emoji: "🎉", Count: 1, Reacted: true},
		}, events[1].Reactions)
		assert.Empty(t, events[0].Reactions)

		_, err = repo.AddReaction(ctx, feed.Reaction{EventID: uuid.New().String(), UserID: john.ID, Emoji: "👍", CreatedAt: March(2, 11, 0)})
		assert.Equal(t, feed.ErrNotFound, errors.Cause(err))

		require.NoError(t, repo.RemoveReaction(ctx, e1.ID, john.ID, "🎉"))
		err = repo.RemoveReaction(ctx, e1.ID, john.ID, "🎉")
		assert.Equal(t, feed.ErrReactionNotFound, errors.Cause(err))

		e, err = repo.GetEvent(ctx, john.ID, e1.ID)
		require.NoError(t, err)
		assert.Equal(t, []feed.Reactions{{Emoji: "👍", Count: 2, Reacted: true}}, e.Reactions)
	})
}
