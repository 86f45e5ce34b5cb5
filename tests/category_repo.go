package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
)

// RunCategoryRepositoryTests checks the behaviour every category.Repository implementation shares.
// The repositories must start empty.
func RunCategoryRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Category
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)

	work := CreateCategory(t, repo, jane.ID, "Work")
	sport := CreateCategory(t, repo, jane.ID, "Sport")
	johnsWork := CreateCategory(t, repo, john.ID, "Work")

	t.Run("create", func(t *testing.T) {
		_, err := uuid.Parse(work.ID)
		assert.NoError(t, err)
		assert.NotEqual(t, work.ID, johnsWork.ID)

		_, err = repo.CreateCategory(ctx, category.Category{UserID: jane.ID, Name: "WORK", Color: "#000000", CreatedAt: work.CreatedAt, UpdatedAt: work.UpdatedAt})
		assertValidationError(t, category.ErrNameExists, err)
	})

	t.Run("query", func(t *testing.T) {
		byName := []core.DBOrdering{{Field: "name", Ascending: true}}
		cats, err := repo.QueryCategories(ctx, jane.ID, category.QueryFilter{}, byName)
		require.NoError(t, err)
		require.Len(t, cats, 2)
		assert.Equal(t, sport.ID, cats[0].ID)
		assert.Equal(t, work.ID, cats[1].ID)

		cats, err = repo.QueryCategories(ctx, jane.ID, category.QueryFilter{Name: "POR"}, byName)
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, sport.ID, cats[0].ID)

		cats, err = repo.QueryCategories(ctx, "lol", category.QueryFilter{}, byName)
		require.NoError(t, err)
		assert.Empty(t, cats)
	})

	t.Run("get", func(t *testing.T) {
		cat, err := repo.GetCategory(ctx, jane.ID, work.ID)
		require.NoError(t, err)
		assert.Equal(t, "Work", cat.Name)
		assert.Equal(t, jane.ID, cat.UserID)
		assert.True(t, work.CreatedAt.Equal(cat.CreatedAt))

		cat, err = repo.GetCategoryByName(ctx, jane.ID, "sPORT")
		require.NoError(t, err)
		assert.Equal(t, sport.ID, cat.ID)

		_, err = repo.GetCategory(ctx, john.ID, work.ID)
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))
		_, err = repo.GetCategory(ctx, jane.ID, "lol")
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))
		_, err = repo.GetCategoryByName(ctx, jane.ID, "Chores")
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		cat := work
		cat.Name = "Job"
		cat.Color = "#123456"
		cat.UpdatedAt = March(2, 8, 0)
		_, err := repo.UpdateCategory(ctx, cat)
		require.NoError(t, err)

		cat, err = repo.GetCategory(ctx, jane.ID, work.ID)
		require.NoError(t, err)
		assert.Equal(t, "Job", cat.Name)
		assert.Equal(t, "#123456", cat.Color)
		assert.True(t, March(2, 8, 0).Equal(cat.UpdatedAt))

		cat.Name = "sport"
		_, err = repo.UpdateCategory(ctx, cat)
		assertValidationError(t, category.ErrNameExists, err)

		cat.Name = "Job"
		cat.UserID = john.ID
		_, err = repo.UpdateCategory(ctx, cat)
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))
	})

	t.Run("count sessions and delete", func(t *testing.T) {
		CreateFixedSession(t, repos.Session, jane.ID, sport, nil, March(2, 10, 0), 30, nil)
		focus := CreateTag(t, repos.Tag, jane.ID, "Focus", work.ID)
		_, err := repos.Session.CreateStopwatchSession(ctx, session.StopwatchSession{
			UserID:    jane.ID,
			StartTime: March(3, 10, 0),
			Category:  &work,
			CreatedAt: March(3, 10, 0),
		})
		require.NoError(t, err)

		cnt, err := repo.CountSessions(ctx, jane.ID, sport.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
		cnt, err = repo.CountSessions(ctx, jane.ID, work.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)
		cnt, err = repo.CountSessions(ctx, john.ID, johnsWork.ID)
		require.NoError(t, err)
		assert.Zero(t, cnt)

		err = repo.DeleteCategory(ctx, jane.ID, sport.ID)
		assertConflict(t, err)
		_, err = repo.GetCategory(ctx, jane.ID, sport.ID)
		assert.NoError(t, err)

		err = repo.DeleteCategory(ctx, john.ID, work.ID)
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))

		require.NoError(t, repo.DeleteCategory(ctx, jane.ID, work.ID))
		_, err = repo.GetCategory(ctx, jane.ID, work.ID)
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))
		err = repo.DeleteCategory(ctx, jane.ID, work.ID)
		assert.Equal(t, category.ErrNotFound, errors.Cause(err))

		sw, err := repos.Session.GetStopwatchSession(ctx, jane.ID)
		require.NoError(t, err)
		assert.Nil(t, sw.Category)

		tg, err := repos.Tag.GetTag(ctx, jane.ID, focus.ID)
		require.NoError(t, err)
		assert.Empty(t, tg.AllowedCategories)
	})
}
