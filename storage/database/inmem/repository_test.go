package inmemdb_test

import (
	"testing"

	inmemdb "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/inmem"
	testutil "github.com/Kobu-Labs/nowaster-web-sub002/tests"
)

func newRepositories() testutil.Repositories {
	db := inmemdb.Open()
	return testutil.Repositories{
		User:         inmemdb.NewUserRepository(db),
		Category:     inmemdb.NewCategoryRepository(db),
		Tag:          inmemdb.NewTagRepository(db),
		Session:      inmemdb.NewSessionRepository(db),
		Project:      inmemdb.NewProjectRepository(db),
		Friend:       inmemdb.NewFriendRepository(db),
		Feed:         inmemdb.NewFeedRepository(db),
		Notification: inmemdb.NewNotificationRepository(db),
		Statistics:   inmemdb.NewStatisticsRepository(db),
	}
}

func TestCategoryRepository(t *testing.T) {
	testutil.RunCategoryRepositoryTests(t, newRepositories())
}

func TestTagRepository(t *testing.T) {
	testutil.RunTagRepositoryTests(t, newRepositories())
}

func TestSessionRepository(t *testing.T) {
	testutil.RunSessionRepositoryTests(t, newRepositories())
}

func TestProjectRepository(t *testing.T) {
	testutil.RunProjectRepositoryTests(t, newRepositories())
}

func TestFriendRepository(t *testing.T) {
	testutil.RunFriendRepositoryTests(t, newRepositories())
}

func TestFeedRepository(t *testing.T) {
	testutil.RunFeedRepositoryTests(t, newRepositories())
}

func TestNotificationRepository(t *testing.T) {
	testutil.RunNotificationRepositoryTests(t, newRepositories())
}

func TestStatisticsRepository(t *testing.T) {
	testutil.RunStatisticsRepositoryTests(t, newRepositories())
}
