package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

// RunUserRepositoryTests checks the behaviour every user.Repository implementation shares.
// repo must start empty.
func RunUserRepositoryTests(t *testing.T, repo user.Repository) {
	ctx := context.Background()
	jane := CreateUser(t, repo, "Jane Doe", "jane", "jane@test.com", "pwd", user.AdminRoles, true)
	john := CreateUser(t, repo, "John Doe", "john", "john@test.com", "pwd", nil, false)

	t.Run("create", func(t *testing.T) {
		_, err := uuid.Parse(jane.ID)
		assert.NoError(t, err)

		dup := user.User{Name: "Jane", Username: "jane", Email: "other@test.com", Roles: []string{}}
		_, err = repo.CreateUser(ctx, dup)
		assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))
	})

	t.Run("check uniqueness", func(t *testing.T) {
		err := repo.CheckUsernameUniqueness(ctx, "jane", "new@test.com", nil)
		assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))

		err = repo.CheckUsernameUniqueness(ctx, "new", "john@test.com", nil)
		assert.Error(t, err)

		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "jane", "jane@test.com", []user.User{jane}))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "new", "new@test.com", nil))
	})

	t.Run("get", func(t *testing.T) {
		filters := []user.GetFilter{
			{ID: jane.ID},
			{Username: "jane"},
			{Email: "jane@test.com"},
			{UsernameOrEmail: "jane"},
			{UsernameOrEmail: "jane@test.com"},
		}
		for _, f := range filters {
			usr, err := repo.GetUser(ctx, f)
			require.NoError(t, err)
			assert.Equal(t, jane.ID, usr.ID)
			assert.ElementsMatch(t, user.AdminRoles, usr.Roles)
			assert.Equal(t, user.VisibilityFriends, usr.Visibility)
			assert.NoError(t, usr.CheckPassword("pwd"))
		}

		notFound := []user.GetFilter{
			{},
			{ID: "lol"},
			{ID: uuid.New().String()},
			{Username: "lol"},
			{UsernameOrEmail: "lol@test.com"},
		}
		for _, f := range notFound {
			_, err := repo.GetUser(ctx, f)
			assert.Equal(t, user.ErrNotFound, errors.Cause(err))
		}

		users, err := repo.GetUsersByID(ctx, []string{jane.ID, "lol", jane.ID, john.ID})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("query", func(t *testing.T) {
		users, err := repo.QueryUsers(ctx, &user.QueryFilter{Search: "JOHN"}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, john.ID, users[0].ID)

		active := true
		users, err = repo.QueryUsers(ctx, &user.QueryFilter{IsActive: &active}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, jane.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, &user.QueryFilter{Roles: []string{"admin"}}, nil)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, jane.ID, users[0].ID)

		users, err = repo.QueryUsers(ctx, nil, []core.DBOrdering{{Field: "username"}})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "john", users[0].Username)
	})

	t.Run("search", func(t *testing.T) {
		users, err := repo.SearchUsers(ctx, "J", "", 10)
		require.NoError(t, err)
		require.Len(t, users, 1) // john is inactive
		assert.Equal(t, jane.ID, users[0].ID)

		users, err = repo.SearchUsers(ctx, "j", jane.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("update", func(t *testing.T) {
		usr := jane
		usr.Name = "Jane Smith"
		usr.Visibility = user.VisibilityPublic
		_, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)

		usr, err = repo.GetUser(ctx, user.GetFilter{ID: jane.ID})
		require.NoError(t, err)
		assert.Equal(t, "Jane Smith", usr.Name)
		assert.Equal(t, user.VisibilityPublic, usr.Visibility)

		usr.Username = "john"
		_, err = repo.UpdateUser(ctx, usr)
		assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))

		ghost := jane
		ghost.ID = uuid.New().String()
		ghost.Username, ghost.Email = "ghost", "ghost@test.com"
		_, err = repo.UpdateUser(ctx, ghost)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("delete", func(t *testing.T) {
		cnt, err := repo.DeleteUsersByID(ctx, []string{john.ID, "lol"})
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: john.ID})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}
