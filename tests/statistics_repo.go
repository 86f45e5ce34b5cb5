package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
)

const minutesDelta = 1e-6

// RunStatisticsRepositoryTests checks the aggregates every statistics.Repository implementation computes.
// The repositories must start empty.
func RunStatisticsRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Statistics
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)
	work := CreateCategory(t, repos.Category, jane.ID, "Work")
	sport := CreateCategory(t, repos.Category, jane.ID, "Sport")
	johnsWork := CreateCategory(t, repos.Category, john.ID, "Work")
	a := CreateTag(t, repos.Tag, jane.ID, "a")
	b := CreateTag(t, repos.Tag, jane.ID, "b")
	thesis := CreateProject(t, repos.Project, jane.ID, "Thesis", March(1, 8, 0))
	writing := CreateTask(t, repos.Project, thesis, "Writing", March(1, 8, 0))
	review := CreateTask(t, repos.Project, thesis, "Review", March(1, 9, 0))

	CreateFixedSession(t, repos.Session, jane.ID, work, []tag.Tag{a, b}, March(1, 10, 0), 60, &writing.ID)
	// crosses midnight, counted on the day it started
	CreateFixedSession(t, repos.Session, jane.ID, work, []tag.Tag{a}, March(1, 22, 0), 150, nil)
	CreateFixedSession(t, repos.Session, jane.ID, sport, nil, March(3, 9, 0), 45, &writing.ID)
	CreateFixedSession(t, repos.Session, jane.ID, sport, []tag.Tag{b}, March(5, 9, 0), 30, nil)
	CreateFixedSession(t, repos.Session, john.ID, johnsWork, nil, March(1, 10, 0), 60, nil)

	t.Run("totals", func(t *testing.T) {
		tests := []struct {
			name   string
			window statistics.Window
			count  int
			mins   float64
		}{
			{name: "all time", count: 4, mins: 285},
			{name: "from", window: statistics.Window{From: March(3, 0, 0)}, count: 2, mins: 75},
			{name: "to is exclusive", window: statistics.Window{From: March(2, 0, 0), To: March(5, 9, 0)}, count: 1, mins: 45},
			{name: "empty", window: statistics.Window{From: March(6, 0, 0), To: March(7, 0, 0)}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				totals, err := repo.Totals(ctx, jane.ID, tt.window)
				require.NoError(t, err)
				assert.Equal(t, tt.count, totals.SessionCount)
				assert.InDelta(t, tt.mins, totals.TotalMinutes, minutesDelta)
			})
		}

		totals, err := repo.Totals(ctx, uuid.New().String(), statistics.Window{})
		require.NoError(t, err)
		assert.Equal(t, statistics.Totals{}, totals)
	})

	t.Run("session dates", func(t *testing.T) {
		dates, err := repo.SessionDates(ctx, jane.ID)
		require.NoError(t, err)
		want := []time.Time{March(5, 0, 0), March(3, 0, 0), March(1, 0, 0)}
		require.Len(t, dates, len(want))
		for i := range want {
			assert.True(t, want[i].Equal(dates[i]), "want %v, got %v", want[i], dates[i])
		}
	})

	t.Run("by category", func(t *testing.T) {
		stats, err := repo.MinutesByCategory(ctx, jane.ID, statistics.Window{})
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, work.ID, stats[0].ID)
		assert.Equal(t, "Work", stats[0].Name)
		assert.Equal(t, "#ff0000", stats[0].Color)
		assert.InDelta(t, 210.0, stats[0].Minutes, minutesDelta)
		assert.Equal(t, 2, stats[0].SessionCount)
		assert.Equal(t, sport.ID, stats[1].ID)
		assert.InDelta(t, 75.0, stats[1].Minutes, minutesDelta)

		stats, err = repo.MinutesByCategory(ctx, jane.ID, statistics.Window{From: March(2, 0, 0)})
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, sport.ID, stats[0].ID)
	})

	t.Run("by tag", func(t *testing.T) {
		stats, err := repo.MinutesByTag(ctx, jane.ID, statistics.Window{})
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, a.ID, stats[0].ID)
		assert.Equal(t, "a", stats[0].Name)
		assert.InDelta(t, 210.0, stats[0].Minutes, minutesDelta)
		assert.Equal(t, 2, stats[0].SessionCount)
		assert.Equal(t, b.ID, stats[1].ID)
		assert.InDelta(t, 90.0, stats[1].Minutes, minutesDelta)
		assert.Equal(t, 2, stats[1].SessionCount)

		stats, err = repo.MinutesByTag(ctx, john.ID, statistics.Window{})
		require.NoError(t, err)
		assert.Empty(t, stats)
	})

	t.Run("daily", func(t *testing.T) {
		stats, err := repo.DailyMinutes(ctx, jane.ID, statistics.Window{To: March(5, 0, 0)})
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, "2024-03-01", stats[0].Date)
		assert.InDelta(t, 210.0, stats[0].Minutes, minutesDelta)
		assert.Equal(t, 2, stats[0].SessionCount)
		assert.Equal(t, "2024-03-03", stats[1].Date)
		assert.InDelta(t, 45.0, stats[1].Minutes, minutesDelta)
		assert.Equal(t, 1, stats[1].SessionCount)
	})

	t.Run("project", func(t *testing.T) {
		stat, err := repo.ProjectStatistics(ctx, jane.ID, thesis.ID)
		require.NoError(t, err)
		assert.Equal(t, thesis.ID, stat.ProjectID)
		assert.InDelta(t, 105.0, stat.TotalMinutes, minutesDelta)
		assert.Equal(t, 2, stat.SessionCount)
		require.Len(t, stat.Tasks, 2)
		assert.Equal(t, writing.ID, stat.Tasks[0].TaskID)
		assert.Equal(t, "Writing", stat.Tasks[0].Name)
		assert.InDelta(t, 105.0, stat.Tasks[0].Minutes, minutesDelta)
		assert.Equal(t, 2, stat.Tasks[0].SessionCount)
		assert.Equal(t, statistics.TaskStat{TaskID: review.ID, Name: "Review"}, stat.Tasks[1])

		stat, err = repo.ProjectStatistics(ctx, jane.ID, uuid.New().String())
		require.NoError(t, err)
		assert.Zero(t, stat.SessionCount)
		assert.Empty(t, stat.Tasks)
	})
}
