package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
)

func projectIDs(projects []project.Project) []string {
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids
}

func taskIDs(tasks []project.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// RunProjectRepositoryTests checks the behaviour every project.Repository implementation shares.
// The repositories must start empty.
func RunProjectRepositoryTests(t *testing.T, repos Repositories) {
	ctx := context.Background()
	repo := repos.Project
	jane := CreateUser(t, repos.User, "Jane Doe", "jane", "jane@test.com", "pwd", nil, true)
	john := CreateUser(t, repos.User, "John Doe", "john", "john@test.com", "pwd", nil, true)
	work := CreateCategory(t, repos.Category, jane.ID, "Work")

	thesis := CreateProject(t, repo, jane.ID, "Thesis", March(1, 8, 0))
	garden := CreateProject(t, repo, jane.ID, "Garden", March(2, 8, 0))
	CreateProject(t, repo, john.ID, "Thesis", March(3, 8, 0))

	writing := CreateTask(t, repo, thesis, "Writing", March(1, 9, 0))
	review := CreateTask(t, repo, thesis, "Review", March(1, 10, 0))
	CreateTask(t, repo, garden, "Writing", March(2, 9, 0))

	t.Run("create", func(t *testing.T) {
		_, err := uuid.Parse(thesis.ID)
		assert.NoError(t, err)

		_, err = repo.CreateProject(ctx, project.Project{UserID: jane.ID, Name: "THESIS", Color: "#000000", CreatedAt: March(4, 8, 0), UpdatedAt: March(4, 8, 0)})
		assertValidationError(t, project.ErrNameExists, err)

		_, err = repo.CreateTask(ctx, project.Task{ProjectID: thesis.ID, UserID: jane.ID, Name: "writing", CreatedAt: March(4, 8, 0), UpdatedAt: March(4, 8, 0)})
		assertValidationError(t, project.ErrTaskExists, err)

		_, err = repo.CreateTask(ctx, project.Task{ProjectID: uuid.New().String(), UserID: jane.ID, Name: "Orphan", CreatedAt: March(4, 8, 0), UpdatedAt: March(4, 8, 0)})
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))
	})

	t.Run("query projects", func(t *testing.T) {
		projects, err := repo.QueryProjects(ctx, jane.ID, project.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{garden.ID, thesis.ID}, projectIDs(projects))
		assert.Equal(t, 1, projects[0].TaskCount)
		assert.Equal(t, 2, projects[1].TaskCount)

		p, err := repo.GetProject(ctx, jane.ID, thesis.ID)
		require.NoError(t, err)
		assert.Equal(t, "Thesis", p.Name)
		assert.Equal(t, 2, p.TaskCount)
		assert.Zero(t, p.CompletedTaskCount)

		p, err = repo.GetProjectByName(ctx, jane.ID, "gARDEN")
		require.NoError(t, err)
		assert.Equal(t, garden.ID, p.ID)

		_, err = repo.GetProject(ctx, john.ID, thesis.ID)
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))
		_, err = repo.GetProject(ctx, jane.ID, "lol")
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))
	})

	t.Run("tasks", func(t *testing.T) {
		CreateFixedSession(t, repos.Session, jane.ID, work, nil, March(5, 10, 0), 60, &writing.ID)
		CreateFixedSession(t, repos.Session, jane.ID, work, nil, March(6, 10, 0), 30, &writing.ID)

		tasks, err := repo.QueryTasks(ctx, jane.ID, thesis.ID, project.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{writing.ID, review.ID}, taskIDs(tasks))
		assert.InDelta(t, 90.0, tasks[0].TotalMinutes, 1e-9)
		assert.Zero(t, tasks[1].TotalMinutes)

		task, err := repo.GetTaskByName(ctx, thesis.ID, "WRITING")
		require.NoError(t, err)
		assert.Equal(t, writing.ID, task.ID)

		task = review
		task.Completed = true
		task.Description = "proofread"
		task.UpdatedAt = March(7, 8, 0)
		task, err = repo.UpdateTask(ctx, task)
		require.NoError(t, err)
		assert.True(t, task.Completed)
		assert.Equal(t, "proofread", task.Description)

		task.Name = "Writing"
		_, err = repo.UpdateTask(ctx, task)
		assertValidationError(t, project.ErrTaskExists, err)

		completed := true
		tasks, err = repo.QueryTasks(ctx, jane.ID, thesis.ID, project.QueryFilter{Completed: &completed})
		require.NoError(t, err)
		assert.Equal(t, []string{review.ID}, taskIDs(tasks))

		p, err := repo.GetProject(ctx, jane.ID, thesis.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.CompletedTaskCount)

		_, err = repo.GetTask(ctx, john.ID, writing.ID)
		assert.Equal(t, project.ErrTaskNotFound, errors.Cause(err))
	})

	t.Run("update project", func(t *testing.T) {
		p := thesis
		p.Completed = true
		p.Description = "master thesis"
		p.UpdatedAt = March(7, 8, 0)
		p, err := repo.UpdateProject(ctx, p)
		require.NoError(t, err)
		assert.True(t, p.Completed)
		assert.Equal(t, 2, p.TaskCount)

		completed := true
		projects, err := repo.QueryProjects(ctx, jane.ID, project.QueryFilter{Completed: &completed})
		require.NoError(t, err)
		assert.Equal(t, []string{thesis.ID}, projectIDs(projects))

		p.Name = "Garden"
		_, err = repo.UpdateProject(ctx, p)
		assertValidationError(t, project.ErrNameExists, err)

		p.Name = "Thesis"
		p.UserID = john.ID
		_, err = repo.UpdateProject(ctx, p)
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))
	})

	t.Run("delete task", func(t *testing.T) {
		fs := CreateFixedSession(t, repos.Session, jane.ID, work, nil, March(8, 10, 0), 15, &review.ID)

		err := repo.DeleteTask(ctx, john.ID, review.ID)
		assert.Equal(t, project.ErrTaskNotFound, errors.Cause(err))

		require.NoError(t, repo.DeleteTask(ctx, jane.ID, review.ID))
		_, err = repo.GetTask(ctx, jane.ID, review.ID)
		assert.Equal(t, project.ErrTaskNotFound, errors.Cause(err))

		fs, err = repos.Session.GetFixedSession(ctx, jane.ID, fs.ID)
		require.NoError(t, err)
		assert.Nil(t, fs.TaskID)
	})

	t.Run("delete project cascades", func(t *testing.T) {
		_, err := repos.Session.CreateStopwatchSession(ctx, session.StopwatchSession{
			UserID:    jane.ID,
			StartTime: March(9, 10, 0),
			TaskID:    &writing.ID,
			CreatedAt: March(9, 10, 0),
		})
		require.NoError(t, err)

		err = repo.DeleteProject(ctx, john.ID, thesis.ID)
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))

		require.NoError(t, repo.DeleteProject(ctx, jane.ID, thesis.ID))
		_, err = repo.GetProject(ctx, jane.ID, thesis.ID)
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))
		_, err = repo.GetTask(ctx, jane.ID, writing.ID)
		assert.Equal(t, project.ErrTaskNotFound, errors.Cause(err))
		err = repo.DeleteProject(ctx, jane.ID, thesis.ID)
		assert.Equal(t, project.ErrNotFound, errors.Cause(err))

		// sessions of the deleted tasks are kept
		sessions, err := repos.Session.QueryFixedSessions(ctx, jane.ID, session.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, sessions, 3)
		for _, fs := range sessions {
			assert.Nil(t, fs.TaskID)
		}
		sw, err := repos.Session.GetStopwatchSession(ctx, jane.ID)
		require.NoError(t, err)
		assert.Nil(t, sw.TaskID)

		projects, err := repo.QueryProjects(ctx, jane.ID, project.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{garden.ID}, projectIDs(projects))
	})
}
