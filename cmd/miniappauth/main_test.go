package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
	"github.com/nkiryanov/miniappauth/internal/mockapi"
)

const testInitData = `query_id=AAHdF6IQAAAAAN0XohDhrOrc&user=%7B%22id%22%3A279058397%2C%22first_name%22%3A%22Vladislav%22%2C%22last_name%22%3A%22Kibenko%22%2C%22username%22%3A%22vdkfrost%22%7D&auth_date=1662771648&hash=c501b71e775f74ce10e377dea85a7ea24ecd640b223ea86dfe453e0eaed2e2b2`

func Test_run(t *testing.T) {
	backend, err := mockapi.New(mockapi.Config{SecretKey: "secret"}, nil)
	require.NoError(t, err)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	getwd := func() (string, error) { return dir, nil }
	getenv := func(key string) string {
		return map[string]string{
			"API_URL":      srv.URL + mockapi.PathPrefix,
			"STORAGE_PATH": filepath.Join(dir, "session.json"),
			"SECRET_KEY":   "local-secret",
		}[key]
	}

	// Every command runs as a separate process would: state goes through the storage only
	runCmd := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		out := &bytes.Buffer{}
		err := run(t.Context(), getenv, getwd, args, out)
		return out.String(), err
	}

	status := func(t *testing.T) map[string]any {
		t.Helper()
		out, err := runCmd(t, "status")
		require.NoError(t, err)
		var st map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &st))
		return st
	}

	t.Run("anonymous at start", func(t *testing.T) {
		st := status(t)

		require.Equal(t, "anonymous", st["state"])
		require.Equal(t, false, st["is_authenticated"])
	})

	t.Run("me requires login", func(t *testing.T) {
		_, err := runCmd(t, "me")

		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	})

	t.Run("login", func(t *testing.T) {
		out, err := runCmd(t, "login", testInitData)

		require.NoError(t, err)
		require.Equal(t, "Logged in as Vladislav Kibenko (telegram id 279058397)\n", out)

		st := status(t)
		require.Equal(t, "authenticated", st["state"])
		require.Equal(t, true, st["has_refresh_token"])
		require.NotEmpty(t, st["access_expires_at"])
	})

	t.Run("me", func(t *testing.T) {
		out, err := runCmd(t, "me")

		require.NoError(t, err)
		var user map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &user))
		require.EqualValues(t, 279058397, user["telegram_id"])
		require.Equal(t, "vdkfrost", user["username"])
	})

	t.Run("refresh", func(t *testing.T) {
		out, err := runCmd(t, "refresh")

		require.NoError(t, err)
		require.Equal(t, "Tokens refreshed\n", out)
	})

	t.Run("logout", func(t *testing.T) {
		out, err := runCmd(t, "logout")

		require.NoError(t, err)
		require.Equal(t, "Logged out\n", out)
		require.Equal(t, "anonymous", status(t)["state"])
	})

	t.Run("delete", func(t *testing.T) {
		_, err := runCmd(t, "login", testInitData)
		require.NoError(t, err)

		out, err := runCmd(t, "delete")

		require.NoError(t, err)
		require.Equal(t, "Account deleted\n", out)
		require.Equal(t, 0, backend.UsersCount())
	})

	t.Run("usage errors", func(t *testing.T) {
		_, err := runCmd(t)
		require.ErrorIs(t, err, errUsage)

		_, err = runCmd(t, "login")
		require.ErrorIs(t, err, errUsage)

		_, err = runCmd(t, "dance")
		require.ErrorIs(t, err, errUsage)
	})

	t.Run("invalid config", func(t *testing.T) {
		err := run(t.Context(), getenv, getwd, []string{"--storage", "floppy", "status"}, &bytes.Buffer{})

		require.Error(t, err)
	})
}
