package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

func tagIDs(tags []tag.Tag) []string {
	ids := make([]string, 0, len(tags))
	for _, tg := range tags {
		ids = append(ids, tg.ID)
	}
	return ids
}

// RunTagRepositoryTests checks the behaviour every tag.Repository implementation shares.
// The repositories must start empty.
func RunTagRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Tag
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)
	work := CreateCategory(t, repos.Category, jane.ID, "Work")
	sport := CreateCategory(t, repos.Category, jane.ID, "Sport")

	focus := CreateTag(t, repo, jane.ID, "Focus", work.ID)
	deep := CreateTag(t, repo, jane.ID, "Deep")
	johnsFocus := CreateTag(t, repo, john.ID, "Focus")

	t.Run("create", func(t *testing.T) {
		_, err := uuid.Parse(focus.ID)
		assert.NoError(t, err)
		require.Len(t, focus.AllowedCategories, 1)
		assert.Equal(t, work.ID, focus.AllowedCategories[0].ID)
		assert.Equal(t, "Work", focus.AllowedCategories[0].Name)
		assert.Empty(t, deep.AllowedCategories)
		assert.Zero(t, focus.Usages)

		_, err = repo.CreateTag(ctx, tag.Tag{UserID: jane.ID, Label: "FOCUS", Color: "#000000", CreatedAt: focus.CreatedAt}, nil)
		assertValidationError(t, tag.ErrLabelExists, err)
	})

	t.Run("query", func(t *testing.T) {
		tags, err := repo.QueryTags(ctx, jane.ID, tag.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{deep.ID, focus.ID}, tagIDs(tags))

		tags, err = repo.QueryTags(ctx, jane.ID, tag.QueryFilter{Label: "OCU"})
		require.NoError(t, err)
		assert.Equal(t, []string{focus.ID}, tagIDs(tags))

		// tags without allowed categories fit every category
		tags, err = repo.QueryTags(ctx, jane.ID, tag.QueryFilter{CategoryID: sport.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{deep.ID}, tagIDs(tags))

		tags, err = repo.QueryTags(ctx, jane.ID, tag.QueryFilter{CategoryID: work.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{deep.ID, focus.ID}, tagIDs(tags))
	})

	t.Run("get", func(t *testing.T) {
		tg, err := repo.GetTag(ctx, jane.ID, focus.ID)
		require.NoError(t, err)
		assert.Equal(t, "Focus", tg.Label)
		assert.Equal(t, "#00ff00", tg.Color)

		tg, err = repo.GetTagByLabel(ctx, jane.ID, "fOCUS")
		require.NoError(t, err)
		assert.Equal(t, focus.ID, tg.ID)

		tags, err := repo.GetTagsByID(ctx, jane.ID, []string{focus.ID, "lol", johnsFocus.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{focus.ID}, tagIDs(tags))

		_, err = repo.GetTag(ctx, john.ID, focus.ID)
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))
		_, err = repo.GetTag(ctx, jane.ID, "lol")
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))
		_, err = repo.GetTagByLabel(ctx, jane.ID, "Shallow")
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		tg := focus
		tg.Label = "Flow"
		tg, err := repo.UpdateTag(ctx, tg, nil)
		require.NoError(t, err)
		assert.Equal(t, "Flow", tg.Label)
		require.Len(t, tg.AllowedCategories, 1, "nil categories are left unchanged")

		tg, err = repo.UpdateTag(ctx, tg, []string{sport.ID, work.ID})
		require.NoError(t, err)
		require.Len(t, tg.AllowedCategories, 2)
		assert.Equal(t, "Sport", tg.AllowedCategories[0].Name)

		tg, err = repo.UpdateTag(ctx, tg, []string{})
		require.NoError(t, err)
		assert.Empty(t, tg.AllowedCategories)

		tg.Label = "deep"
		_, err = repo.UpdateTag(ctx, tg, nil)
		assertValidationError(t, tag.ErrLabelExists, err)

		tg.Label = "Flow"
		tg.UserID = john.ID
		_, err = repo.UpdateTag(ctx, tg, nil)
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))
	})

	t.Run("allowed categories", func(t *testing.T) {
		require.NoError(t, repo.AddAllowedCategory(ctx, deep.ID, sport.ID))
		require.NoError(t, repo.AddAllowedCategory(ctx, deep.ID, sport.ID))
		tg, err := repo.GetTag(ctx, jane.ID, deep.ID)
		require.NoError(t, err)
		require.Len(t, tg.AllowedCategories, 1)
		assert.Equal(t, sport.ID, tg.AllowedCategories[0].ID)

		require.NoError(t, repo.RemoveAllowedCategory(ctx, deep.ID, sport.ID))
		tg, err = repo.GetTag(ctx, jane.ID, deep.ID)
		require.NoError(t, err)
		assert.Empty(t, tg.AllowedCategories)
	})

	t.Run("usages and delete", func(t *testing.T) {
		fs := CreateFixedSession(t, repos.Session, jane.ID, work, []tag.Tag{focus, deep}, March(2, 10, 0), 30, nil)
		tg, err := repo.GetTag(ctx, jane.ID, deep.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, tg.Usages)

		err = repo.DeleteTag(ctx, john.ID, deep.ID)
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))

		require.NoError(t, repo.DeleteTag(ctx, jane.ID, deep.ID))
		_, err = repo.GetTag(ctx, jane.ID, deep.ID)
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))
		err = repo.DeleteTag(ctx, jane.ID, deep.ID)
		assert.Equal(t, tag.ErrNotFound, errors.Cause(err))

		fs, err = repos.Session.GetFixedSession(ctx, jane.ID, fs.ID)
		require.NoError(t, err)
		require.Len(t, fs.Tags, 1)
		assert.Equal(t, focus.ID, fs.Tags[0].ID)
	})
}
