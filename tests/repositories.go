package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/session"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/statistics"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/tag"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

// Repositories are the repositories of one storage backend, sharing the same data.
type Repositories struct {
	User         user.Repository
	Category     category.Repository
	Tag          tag.Repository
	Session      session.Repository
	Project      project.Repository
	Friend       friend.Repository
	Feed         feed.Repository
	Notification notification.Repository
	Statistics   statistics.Repository
}

// March returns the given time of March 2024, UTC.
func March(day, hour, min int) time.Time {
	return time.Date(2024, time.March, day, hour, min, 0, 0, time.UTC)
}

func CreateCategory(t *testing.T, repo category.Repository, userID, name string) category.Category {
	t.Helper()
	tstamp := March(1, 8, 0)
	cat, err := repo.CreateCategory(context.Background(), category.Category{
		UserID:    userID,
		Name:      name,
		Color:     "#ff0000",
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createCategory() failed: %v", err)
	}
	return cat
}

func CreateTag(t *testing.T, repo tag.Repository, userID, label string, categoryIDs ...string) tag.Tag {
	t.Helper()
	tg, err := repo.CreateTag(context.Background(), tag.Tag{
		UserID:    userID,
		Label:     label,
		Color:     "#00ff00",
		CreatedAt: March(1, 8, 0),
	}, categoryIDs)
	if err != nil {
		t.Fatalf("createTag() failed: %v", err)
	}
	return tg
}

// CreateFixedSession logs a session of the given minutes, started at start.
func CreateFixedSession(
	t *testing.T,
	repo session.Repository,
	userID string,
	cat category.Category,
	tags []tag.Tag,
	start time.Time,
	minutes int,
	taskID *string,
) session.FixedSession {
	t.Helper()
	summaries := make([]tag.Summary, 0, len(tags))
	for _, tg := range tags {
		summaries = append(summaries, tag.Summary{ID: tg.ID, Label: tg.Label, Color: tg.Color})
	}
	fs, err := repo.CreateFixedSession(context.Background(), session.FixedSession{
		UserID:    userID,
		Category:  cat,
		Tags:      summaries,
		StartTime: start,
		EndTime:   start.Add(time.Duration(minutes) * time.Minute),
		TaskID:    taskID,
		CreatedAt: start,
		UpdatedAt: start,
	})
	if err != nil {
		t.Fatalf("createFixedSession() failed: %v", err)
	}
	return fs
}

func CreateProject(t *testing.T, repo project.Repository, userID, name string, createdAt time.Time) project.Project {
	t.Helper()
	p, err := repo.CreateProject(context.Background(), project.Project{
		UserID:    userID,
		Name:      name,
		Color:     "#0000ff",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("createProject() failed: %v", err)
	}
	return p
}

func CreateTask(t *testing.T, repo project.Repository, p project.Project, name string, createdAt time.Time) project.Task {
	t.Helper()
	task, err := repo.CreateTask(context.Background(), project.Task{
		ProjectID: p.ID,
		UserID:    p.UserID,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("createTask() failed: %v", err)
	}
	return task
}

// assertValidationError checks that err is a *core.ValidationError wrapping want.
func assertValidationError(t *testing.T, want, err error) {
	t.Helper()
	verr, ok := errors.Cause(err).(*core.ValidationError)
	if assert.True(t, ok, "want a validation error, got %v", err) {
		assert.Equal(t, want, verr.Err)
	}
}

func assertConflict(t *testing.T, err error) {
	t.Helper()
	assert.IsType(t, &core.ConflictError{}, errors.Cause(err))
}

func fixedSessionIDs(sessions []session.FixedSession) []string {
	ids := make([]string, 0, len(sessions))
	for _, fs := range sessions {
		ids = append(ids, fs.ID)
	}
	return ids
}

func tagLabels(tags []tag.Summary) []string {
	labels := make([]string, 0, len(tags))
	for _, tg := range tags {
		labels = append(labels, tg.Label)
	}
	return labels
}

// freezeNow sets core.NowFunc to ts until the test ends.
func freezeNow(t *testing.T, ts time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return ts }
	t.Cleanup(func() { core.NowFunc = orig })
}
