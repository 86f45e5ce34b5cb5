package sqlxrepos_test

import (
	"testing"

	boiledrepos "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/sqlboiler"
	sqlxrepos "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/sqlx"
	testutil "github.com/Kobu-Labs/nowaster-web-sub002/tests"
)

// newRepositories pairs the sqlx repositories with the sqlboiler statistics one. Both run here
// so that a single test package empties the shared database.
func newRepositories(t *testing.T) testutil.Repositories {
	db := testutil.PrepareDB(t)
	return testutil.Repositories{
		User:         sqlxrepos.NewUserRepository(db),
		Category:     sqlxrepos.NewCategoryRepository(db),
		Tag:          sqlxrepos.NewTagRepository(db),
		Session:      sqlxrepos.NewSessionRepository(db),
		Project:      sqlxrepos.NewProjectRepository(db),
		Friend:       sqlxrepos.NewFriendRepository(db),
		Feed:         sqlxrepos.NewFeedRepository(db),
		Notification: sqlxrepos.NewNotificationRepository(db),
		Statistics:   boiledrepos.NewStatisticsRepository(db),
	}
}

func TestCategoryRepository(t *testing.T) {
	testutil.RunCategoryRepositoryTests(t, newRepositories(t))
}

func TestTagRepository(t *testing.T) {
	testutil.RunTagRepositoryTests(t, newRepositories(t))
}

func TestSessionRepository(t *testing.T) {
	testutil.RunSessionRepositoryTests(t, newRepositories(t))
}

func TestProjectRepository(t *testing.T) {
	testutil.RunProjectRepositoryTests(t, newRepositories(t))
}

func TestFriendRepository(t *testing.T) {
	testutil.RunFriendRepositoryTests(t, newRepositories(t))
}

func TestFeedRepository(t *testing.T) {
	testutil.RunFeedRepositoryTests(t, newRepositories(t))
}

func TestNotificationRepository(t *testing.T) {
	testutil.RunNotificationRepositoryTests(t, newRepositories(t))
}

func TestStatisticsRepository(t *testing.T) {
	testutil.RunStatisticsRepositoryTests(t, newRepositories(t))
}
