package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

// RunSessionRepositoryTests checks the behaviour every session.Repository implementation shares.
// The repositories must start empty.
func RunSessionRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Session
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)
	work := CreateCategory(t, repos.Category, jane.ID, "Work")
	sport := CreateCategory(t, repos.Category, jane.ID, "Sport")
	johnsWork := CreateCategory(t, repos.Category, john.ID, "Work")
	a := CreateTag(t, repos.Tag, jane.ID, "a")
	b := CreateTag(t, repos.Tag, jane.ID, "b")
	c := CreateTag(t, repos.Tag, jane.ID, "c")
	thesis := CreateProject(t, repos.Project, jane.ID, "Thesis", March(1, 8, 0))
	writing := CreateTask(t, repos.Project, thesis, "Writing", March(1, 8, 0))

	s1 := CreateFixedSession(t, repo, jane.ID, work, []tag.Tag{b, a}, March(1, 10, 0), 60, nil)
	s2 := CreateFixedSession(t, repo, jane.ID, work, []tag.Tag{a}, March(2, 10, 0), 30, nil)
	s3 := CreateFixedSession(t, repo, jane.ID, sport, nil, March(3, 10, 0), 120, &writing.ID)
	johns := CreateFixedSession(t, repo, john.ID, johnsWork, nil, March(2, 10, 0), 60, nil)

	query := func(t *testing.T, filter session.QueryFilter) []string {
		t.Helper()
		filter.Clean()
		sessions, err := repo.QueryFixedSessions(ctx, jane.ID, filter)
		require.NoError(t, err)
		return fixedSessionIDs(sessions)
	}

	t.Run("create and get", func(t *testing.T) {
		_, err := uuid.Parse(s1.ID)
		assert.NoError(t, err)

		fs, err := repo.GetFixedSession(ctx, jane.ID, s1.ID)
		require.NoError(t, err)
		assert.Equal(t, work.ID, fs.Category.ID)
		assert.Equal(t, "Work", fs.Category.Name)
		assert.Equal(t, []string{"a", "b"}, tagLabels(fs.Tags))
		assert.True(t, March(1, 10, 0).Equal(fs.StartTime))
		assert.True(t, March(1, 11, 0).Equal(fs.EndTime))
		assert.Equal(t, 60.0, fs.DurationMinutes)
		assert.Nil(t, fs.TaskID)

		fs, err = repo.GetFixedSession(ctx, jane.ID, s3.ID)
		require.NoError(t, err)
		require.NotNil(t, fs.TaskID)
		assert.Equal(t, writing.ID, *fs.TaskID)
		assert.NotNil(t, fs.Tags)
		assert.Empty(t, fs.Tags)

		_, err = repo.GetFixedSession(ctx, john.ID, s1.ID)
		assert.Equal(t, session.ErrNotFound, errors.Cause(err))
		_, err = repo.GetFixedSession(ctx, jane.ID, "lol")
		assert.Equal(t, session.ErrNotFound, errors.Cause(err))
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name   string
			filter session.QueryFilter
			want   []string
		}{
			{name: "all, most recent first", want: []string{s3.ID, s2.ID, s1.ID}},
			{
				name:   "ascending",
				filter: session.QueryFilter{Ordering: []core.DBOrdering{{Field: "start_time", Ascending: true}}},
				want:   []string{s1.ID, s2.ID, s3.ID},
			},
			{name: "from start time", filter: session.QueryFilter{FromStartTime: March(2, 0, 0)}, want: []string{s3.ID, s2.ID}},
			{name: "to start time is inclusive", filter: session.QueryFilter{ToStartTime: March(2, 10, 0)}, want: []string{s2.ID, s1.ID}},
			{name: "from end time", filter: session.QueryFilter{FromEndTime: March(2, 10, 30)}, want: []string{s3.ID, s2.ID}},
			{name: "to end time", filter: session.QueryFilter{ToEndTime: March(1, 11, 0)}, want: []string{s1.ID}},
			{name: "categories", filter: session.QueryFilter{CategoryIDs: []string{work.ID}}, want: []string{s2.ID, s1.ID}},
			{name: "some tags", filter: session.QueryFilter{TagIDs: []string{a.ID, b.ID}}, want: []string{s2.ID, s1.ID}},
			{
				name:   "all tags",
				filter: session.QueryFilter{TagIDs: []string{a.ID, b.ID}, TagMode: session.TagModeAll},
				want:   []string{s1.ID},
			},
			{
				name:   "all tags, duplicates ignored",
				filter: session.QueryFilter{TagIDs: []string{a.ID, a.ID}, TagMode: session.TagModeAll},
				want:   []string{s2.ID, s1.ID},
			},
			{name: "unused tag", filter: session.QueryFilter{TagIDs: []string{c.ID}}, want: []string{}},
			{name: "malformed tag", filter: session.QueryFilter{TagIDs: []string{"lol"}}, want: []string{}},
			{name: "project", filter: session.QueryFilter{ProjectID: thesis.ID}, want: []string{s3.ID}},
			{name: "task", filter: session.QueryFilter{TaskID: writing.ID}, want: []string{s3.ID}},
			{name: "page", filter: session.QueryFilter{Limit: 1, Offset: 1}, want: []string{s2.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, query(t, tt.filter))
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		fs := s2
		fs.Category = sport
		fs.Tags = []tag.Summary{{ID: c.ID}}
		fs.EndTime = March(2, 11, 0)
		fs.Description = "morning run"
		fs.TaskID = &writing.ID
		fs.UpdatedAt = March(2, 12, 0)
		_, err := repo.UpdateFixedSession(ctx, fs)
		require.NoError(t, err)

		fs, err = repo.GetFixedSession(ctx, jane.ID, s2.ID)
		require.NoError(t, err)
		assert.Equal(t, sport.ID, fs.Category.ID)
		assert.Equal(t, []string{"c"}, tagLabels(fs.Tags))
		assert.Equal(t, 60.0, fs.DurationMinutes)
		assert.Equal(t, "morning run", fs.Description)
		require.NotNil(t, fs.TaskID)
		assert.Equal(t, writing.ID, *fs.TaskID)

		fs.TaskID = nil
		fs, err = repo.UpdateFixedSession(ctx, fs)
		require.NoError(t, err)
		assert.Nil(t, fs.TaskID)

		ghost := fs
		ghost.UserID = john.ID
		_, err = repo.UpdateFixedSession(ctx, ghost)
		assert.Equal(t, session.ErrNotFound, errors.Cause(err))
	})

	t.Run("bulk delete", func(t *testing.T) {
		cnt, err := repo.DeleteFixedSessions(ctx, jane.ID, []string{s1.ID, s2.ID, "lol", uuid.New().String(), johns.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, cnt)

		assert.Equal(t, []string{s3.ID}, query(t, session.QueryFilter{}))
		_, err = repo.GetFixedSession(ctx, john.ID, johns.ID)
		assert.NoError(t, err)

		cnt, err = repo.DeleteFixedSessions(ctx, jane.ID, []string{s1.ID})
		require.NoError(t, err)
		assert.Zero(t, cnt)
	})

	t.Run("stopwatch", func(t *testing.T) {
		_, err := repo.GetStopwatchSession(ctx, jane.ID)
		assert.Equal(t, session.ErrStopwatchNotFound, errors.Cause(err))

		sw, err := repo.CreateStopwatchSession(ctx, session.StopwatchSession{
			UserID:      jane.ID,
			StartTime:   March(4, 9, 0),
			Category:    &work,
			Tags:        []tag.Summary{{ID: a.ID}},
			Description: "reading",
			CreatedAt:   March(4, 9, 0),
		})
		require.NoError(t, err)
		_, err = uuid.Parse(sw.ID)
		assert.NoError(t, err)

		_, err = repo.CreateStopwatchSession(ctx, session.StopwatchSession{UserID: jane.ID, StartTime: March(4, 9, 5), CreatedAt: March(4, 9, 5)})
		assert.Equal(t, session.ErrStopwatchRunning, errors.Cause(err))
		assertConflict(t, err)

		sw, err = repo.GetStopwatchSession(ctx, jane.ID)
		require.NoError(t, err)
		require.NotNil(t, sw.Category)
		assert.Equal(t, work.ID, sw.Category.ID)
		assert.Equal(t, []string{"a"}, tagLabels(sw.Tags))
		assert.Equal(t, "reading", sw.Description)
		assert.True(t, March(4, 9, 0).Equal(sw.StartTime))

		sw.Category = nil
		sw.Tags = []tag.Summary{}
		sw.TaskID = &writing.ID
		sw.StartTime = March(4, 8, 30)
		sw, err = repo.UpdateStopwatchSession(ctx, sw)
		require.NoError(t, err)
		assert.Nil(t, sw.Category)
		assert.Empty(t, sw.Tags)
		require.NotNil(t, sw.TaskID)
		assert.Equal(t, writing.ID, *sw.TaskID)
		assert.True(t, March(4, 8, 30).Equal(sw.StartTime))

		ghost := sw
		ghost.ID = uuid.New().String()
		_, err = repo.UpdateStopwatchSession(ctx, ghost)
		assert.Equal(t, session.ErrStopwatchNotFound, errors.Cause(err))

		// one running stopwatch per user, not per database
		_, err = repo.CreateStopwatchSession(ctx, session.StopwatchSession{
			UserID:    john.ID,
			StartTime: March(4, 9, 0),
			Category:  &johnsWork,
			CreatedAt: March(4, 9, 0),
		})
		require.NoError(t, err)

		require.NoError(t, repo.DeleteStopwatchSession(ctx, jane.ID))
		_, err = repo.GetStopwatchSession(ctx, jane.ID)
		assert.Equal(t, session.ErrStopwatchNotFound, errors.Cause(err))
		err = repo.DeleteStopwatchSession(ctx, jane.ID)
		assert.Equal(t, session.ErrStopwatchNotFound, errors.Cause(err))

		_, err = repo.GetStopwatchSession(ctx, john.ID)
		assert.NoError(t, err)
	})
}
