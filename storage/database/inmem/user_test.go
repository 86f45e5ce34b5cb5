package inmemdb_test

import (
	"testing"

	inmemdb "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/inmem"
	testutil "github.com/Kobu-Labs/nowaster-web-sub002/tests"
)

func TestUserRepository(t *testing.T) {
	testutil.RunUserRepositoryTests(t, inmemdb.NewUserRepository(inmemdb.Open()))
}
