package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

func requestIDs(reqs []friend.Request) []string {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	return ids
}

// RunFriendRepositoryTests checks the behaviour every friend.Repository implementation shares.
// The repositories must start empty.
func RunFriendRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Friend
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)
	bob := CreateUser(t, repos.User, "Bob Doe", "bob", "bob@test.com", "pwd", nil, true)

	newRequest := func(t *testing.T, from, to user.User, day int) friend.Request {
		t.Helper()
		req, err := repo.CreateRequest(ctx, friend.Request{
			Requestor:           from.Summary(),
			Recipient:           to.Summary(),
			Status:              friend.StatusPending,
			IntroductionMessage: "hi " + to.Name,
			CreatedAt:           March(day, 10, 0),
		})
		require.NoError(t, err)
		return req
	}

	janeToJohn := newRequest(t, jane, john, 1)
	bobToJane := newRequest(t, bob, jane, 2)

	t.Run("requests", func(t *testing.T) {
		_, err := uuid.Parse(janeToJohn.ID)
		assert.NoError(t, err)

		_, err = repo.CreateRequest(ctx, friend.Request{
			Requestor: john.Summary(),
			Recipient: jane.Summary(),
			Status:    friend.StatusPending,
			CreatedAt: March(3, 10, 0),
		})
		assert.Equal(t, friend.ErrPendingRequest, errors.Cause(err))

		req, err := repo.GetRequest(ctx, janeToJohn.ID)
		require.NoError(t, err)
		assert.Equal(t, jane.ID, req.Requestor.ID)
		assert.Equal(t, "jane", req.Requestor.Username)
		assert.Equal(t, "john", req.Recipient.Username)
		assert.Equal(t, friend.StatusPending, req.Status)
		assert.Equal(t, "hi John Doe", req.IntroductionMessage)
		assert.True(t, March(1, 10, 0).Equal(req.CreatedAt))
		assert.Nil(t, req.RespondedAt)

		_, err = repo.GetRequest(ctx, uuid.New().String())
		assert.Equal(t, friend.ErrRequestNotFound, errors.Cause(err))

		req, err = repo.GetPendingRequest(ctx, john.ID, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, janeToJohn.ID, req.ID)
		_, err = repo.GetPendingRequest(ctx, john.ID, bob.ID)
		assert.Equal(t, friend.ErrRequestNotFound, errors.Cause(err))
	})

	t.Run("query requests", func(t *testing.T) {
		tests := []struct {
			name   string
			filter friend.QueryFilter
			want   []string
		}{
			{name: "both directions", want: []string{bobToJane.ID, janeToJohn.ID}},
			{name: "incoming", filter: friend.QueryFilter{Direction: friend.DirectionIncoming}, want: []string{bobToJane.ID}},
			{name: "outgoing", filter: friend.QueryFilter{Direction: friend.DirectionOutgoing}, want: []string{janeToJohn.ID}},
			{name: "status", filter: friend.QueryFilter{Status: friend.StatusAccepted}, want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				reqs, err := repo.QueryRequests(ctx, jane.ID, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, requestIDs(reqs))
			})
		}
	})

	t.Run("respond", func(t *testing.T) {
		req := janeToJohn
		respondedAt := March(3, 12, 0)
		req.Status = friend.StatusAccepted
		req.RespondedAt = &respondedAt
		_, err := repo.UpdateRequest(ctx, req)
		require.NoError(t, err)

		req, err = repo.GetRequest(ctx, janeToJohn.ID)
		require.NoError(t, err)
		assert.Equal(t, friend.StatusAccepted, req.Status)
		require.NotNil(t, req.RespondedAt)
		assert.True(t, respondedAt.Equal(*req.RespondedAt))

		_, err = repo.GetPendingRequest(ctx, jane.ID, john.ID)
		assert.Equal(t, friend.ErrRequestNotFound, errors.Cause(err))

		// only pending requests are unique
		newRequest(t, john, jane, 4)

		ghost := req
		ghost.ID = uuid.New().String()
		_, err = repo.UpdateRequest(ctx, ghost)
		assert.Equal(t, friend.ErrRequestNotFound, errors.Cause(err))
	})

	t.Run("friendships", func(t *testing.T) {
		freezeNow(t, March(5, 10, 0))
		require.NoError(t, repo.CreateFriendship(ctx, john.ID, jane.ID))
		require.NoError(t, repo.CreateFriendship(ctx, jane.ID, john.ID))
		freezeNow(t, March(6, 10, 0))
		require.NoError(t, repo.CreateFriendship(ctx, bob.ID, jane.ID))

		ok, err := repo.AreFriends(ctx, jane.ID, john.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.AreFriends(ctx, john.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		friends, err := repo.QueryFriends(ctx, jane.ID)
		require.NoError(t, err)
		require.Len(t, friends, 2)
		assert.Equal(t, bob.ID, friends[0].User.ID)
		assert.Equal(t, "john", friends[1].User.Username)
		assert.True(t, March(5, 10, 0).Equal(friends[1].Since))

		friends, err = repo.QueryFriends(ctx, john.ID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
		janeAndJohn := friends[0]
		assert.Equal(t, jane.ID, janeAndJohn.User.ID)

		f, err := repo.GetFriend(ctx, jane.ID, janeAndJohn.ID)
		require.NoError(t, err)
		assert.Equal(t, john.ID, f.User.ID)
		_, err = repo.GetFriend(ctx, bob.ID, janeAndJohn.ID)
		assert.Equal(t, friend.ErrNotFound, errors.Cause(err))

		err = repo.DeleteFriend(ctx, bob.ID, janeAndJohn.ID)
		assert.Equal(t, friend.ErrNotFound, errors.Cause(err))
		require.NoError(t, repo.DeleteFriend(ctx, john.ID, janeAndJohn.ID))
		ok, err = repo.AreFriends(ctx, jane.ID, john.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		err = repo.DeleteFriend(ctx, john.ID, janeAndJohn.ID)
		assert.Equal(t, friend.ErrNotFound, errors.Cause(err))
	})
}
