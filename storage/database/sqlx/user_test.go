package sqlxrepos_test

import (
	"testing"

	sqlxrepos "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/sqlx"
	testutil "github.com/Kobu-Labs/nowaster-web-sub002/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	testutil.RunUserRepositoryTests(t, sqlxrepos.NewUserRepository(db))
}
