package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/storage"
	"github.com/edutracks/console/storage/memory"
	"github.com/edutracks/console/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *memstorage.DB) {
	out := new(bytes.Buffer)
	mem := memstorage.Open()
	cli := &commandLine{
		conf:    &core.Config{Storage: core.StorageConfig{Engine: storage.Memory}},
		out:     out,
		connect: func() (*sql.DB, error) { return nil, nil },
		openStorage: func(context.Context) (*storage.Engine, error) {
			return &storage.Engine{Backend: mem, Name: storage.Memory}, nil
		},
	}
	return cli, out, mem
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if _, err := fs.Stat(fsys, dir+"/00001_client_storage.sql"); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "client_sessions", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_inspect(t *testing.T) {
	cli, out, _ := setup(t)

	type extra struct {
		token string
	}
	tests := []struct {
		cliTest
		wantOut []string
	}{
		{cliTest: cliTest{name: "no token", args: []string{"inspect"}, wantErr: errHelp}},
		{
			cliTest: cliTest{name: "malformed", args: []string{"inspect"}, extra: extra{token: "not-a-token"}, wantErrStr: "malformed"},
		},
		{
			cliTest: cliTest{name: "live teacher", args: []string{"inspect"}, extra: extra{token: testutil.LiveToken(t, role.Teacher)}},
			wantOut: []string{"live: true", "role: Teacher", "landing: /Teacher/Dashboard"},
		},
		{
			cliTest: cliTest{name: "expired", args: []string{"inspect", "-path", "/Admin/Dashboard"}, extra: extra{token: testutil.ExpiredToken(t, role.Admin)}},
			wantOut: []string{"live: false", "/Admin/Dashboard: protected guard, redirect_login -> /Account/login"},
		},
		{
			cliTest: cliTest{name: "role override", args: []string{"inspect", "-role", "Student", "-path", "/Admin/Students"}, extra: extra{token: testutil.LiveToken(t, role.Admin)}},
			wantOut: []string{"role: Student", "/Admin/Students: protected guard, redirect_role_home -> /Student/Dashboard"},
		},
		{
			cliTest: cliTest{name: "unknown role", args: []string{"inspect", "-path", "/Account/login"}, extra: extra{token: testutil.LiveToken(t, "Janitor")}},
			wantOut: []string{`role: "Janitor" (unknown, falls back to Parent)`, "landing: /Parents/Dashboard", "/Account/login: public_auth guard, redirect_role_home -> /Parents/Dashboard"},
		},
		{
			cliTest: cliTest{name: "not found", args: []string{"inspect", "-path", "/Teacher/Nope"}, extra: extra{token: testutil.LiveToken(t, role.Teacher)}},
			wantOut: []string{"/Teacher/Nope: protected guard, render not found"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.token), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				require.NoError(t, err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func Test_commandLine_clearStorage(t *testing.T) {
	cli, out, mem := setup(t)
	ctx := context.Background()

	st := mem.Opener()("client-1")
	require.NoError(t, st.SetItem(ctx, session.KeyToken, testutil.LiveToken(t, role.Parent)))
	other := mem.Opener()("client-2")
	require.NoError(t, other.SetItem(ctx, session.KeyToken, "kept"))

	assert.Equal(t, errHelp, cli.run([]string{"admin", "clearstorage"}))

	require.NoError(t, cli.run([]string{"admin", "clearstorage", "-client", "client-1"}))
	assert.True(t, strings.Contains(out.String(), "cleared memory storage for client client-1"))

	_, err := st.GetItem(ctx, session.KeyToken)
	assert.Equal(t, session.ErrNoItem, err)
	v, err := other.GetItem(ctx, session.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "kept", v)
}

