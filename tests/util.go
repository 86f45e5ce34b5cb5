package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
	"github.com/Kobu-Labs/nowaster-web-sub002/storage/database"
)

// DatabaseURLEnv names the variable holding the DSN of a disposable Postgres database.
const DatabaseURLEnv = "NOWASTER_TEST_DATABASE_URL"

var tables = []string{
	"notification", "feed_reaction", "feed_event", "friendship", "friend_request",
	"stopwatch_session_tag", "stopwatch_session", "fixed_session_tag", "fixed_session",
	"task", "project", "tag_category", "tag", "category", `"user"`,
}

// PrepareDB opens and migrates the test database, then empties every table when the test ends.
// The test is skipped when DatabaseURLEnv is not set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s is not set", DatabaseURLEnv)
	}
	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("database.OpenURL() failed: %v", err)
	}
	if err = database.Ping(context.Background(), db); err != nil {
		t.Fatalf("database.Ping() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range tables {
			if _, err := db.Exec("DELETE FROM " + table); err != nil {
				t.Errorf("emptying %s: %v", table, err)
			}
		}
		_ = db.Close()
	})
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		Roles:      roles,
		IsActive:   isActive,
		Visibility: user.VisibilityFriends,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
