package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
	inmemdb "github.com/Kobu-Labs/nowaster-web-sub002/storage/database/inmem"
	testutil "github.com/Kobu-Labs/nowaster-web-sub002/tests"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	pwdFunc := readPasswordFunc
	gooseFunc := gooseRunFunc
	t.Cleanup(func() {
		readPasswordFunc = pwdFunc
		gooseRunFunc = gooseFunc
	})

	return &commandLine{usrRepo: inmemdb.NewUserRepository(inmemdb.Open())}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Contains(t, err.Error(), tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(tt.args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotCommand string
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "reactions", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand = ""
			tt.check(t, cli.run(tt.args))
			if tt.wantErr == nil {
				assert.Equal(t, tt.args[1], gotCommand)
			}
		})
	}
}

func Test_commandLine_createUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"createuser"}, wantErr: errHelp},
		{name: "no email", args: []string{"createuser", "--username", "jane"}, wantErr: errHelp},
		{name: "no password", args: []string{"createuser", "--username", "jane", "--email", "jane@test.com"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"createuser", "--lol"}, wantErrStr: "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			tt.check(t, cli.run(tt.args))
		})
	}

	t.Run("create admin", func(t *testing.T) {
		mockPassword("pwd-jane")
		err := cli.run([]string{"createuser", "--username", " Jane ", "--email", "JANE@test.com", "--admin"})
		require.NoError(t, err)

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "jane"})
		require.NoError(t, err)
		assert.Equal(t, "jane@test.com", usr.Email)
		assert.Equal(t, "jane", usr.Name)
		assert.True(t, usr.IsActive)
		assert.True(t, usr.IsAdmin())
		assert.Equal(t, user.VisibilityFriends, usr.Visibility)
		assert.NoError(t, usr.CheckPassword("pwd-jane"))
	})

	t.Run("create regular user", func(t *testing.T) {
		mockPassword("pwd-john")
		err := cli.run([]string{"createuser", "--username", "john", "--email", "john@test.com", "--name", "John Doe"})
		require.NoError(t, err)

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "john@test.com"})
		require.NoError(t, err)
		assert.Equal(t, "John Doe", usr.Name)
		assert.False(t, usr.IsAdmin())
	})

	t.Run("update existing user", func(t *testing.T) {
		before, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "john"})
		require.NoError(t, err)

		mockPassword("new-pwd")
		err = cli.run([]string{"createuser", "--username", "john", "--email", "johnny@test.com"})
		require.NoError(t, err)

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "john"})
		require.NoError(t, err)
		assert.Equal(t, before.ID, usr.ID)
		assert.Equal(t, "johnny@test.com", usr.Email)
		assert.Equal(t, "John Doe", usr.Name)
		assert.NoError(t, usr.CheckPassword("new-pwd"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, cli.usrRepo, "Awe", "awe", "awe@test.cd", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", "AWE@test.cd"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(tt.args)
			tt.check(t, err)
			if err == nil {
				refreshed, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(tt.pwd))
			}
		})
	}
}
