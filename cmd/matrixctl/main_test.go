package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/matrixctl"
	main "github.com/fwojciec/matrixctl/cmd/matrixctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, main.ExitCode(nil))
	assert.Equal(t, 1, main.ExitCode(matrixctl.Errorf(matrixctl.EINVALID, "bad id")))
	assert.Equal(t, 2, main.ExitCode(main.ErrNoCommand))
	assert.Equal(t, 2, main.ExitCode(&kong.ParseError{}))
	assert.Equal(t, 1, main.ExitCode(matrixctl.Errorf(matrixctl.ESERVER, "boom")))
	assert.Equal(t, 1, main.ExitCode(fmt.Errorf("wrapped: %w", matrixctl.Errorf(matrixctl.ECONFIG, "no config"))))
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	t.Run("lists every command group", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, stderr)

		require.NoError(t, err)
		help := stdout.String()
		assert.Contains(t, help, "Usage:")
		for _, cmd := range []string{"adduser", "users", "delroom", "purge-history", "download", "maintenance", "reports", "redact"} {
			assert.Contains(t, help, cmd)
		}
	})

	t.Run("no arguments is invalid input", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := main.NewMain().Run(context.Background(), nil, stdout, stderr)

		require.Error(t, err)
		assert.Equal(t, 2, main.ExitCode(err))
		assert.Contains(t, stdout.String(), "Usage:")
	})

	t.Run("unknown commands exit 2", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}

		err := main.NewMain().Run(context.Background(), []string{"frobnicate"}, stdout, stderr)

		require.Error(t, err)
		assert.Equal(t, 2, main.ExitCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})
}

// writeConfig writes a profile pointing at srv.
func writeConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.yaml")
	config := fmt.Sprintf(`
servers:
  default:
    api:
      domain: %q
      scheme: http
      subdomain: ""
      token: syt_secret
      concurrent_limit: 4
`, u.Host)
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	return path
}

func TestMain_Run_EndToEnd(t *testing.T) {
	t.Parallel()

	t.Run("lists users across concurrent pages", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/_synapse/admin/v2/users", r.URL.Path)
			assert.Equal(t, "Bearer syt_secret", r.Header.Get("Authorization"))
			from, _ := strconv.Atoi(r.URL.Query().Get("from"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			users := []map[string]any{}
			for i := from; i < min(from+limit, 237); i++ {
				users = append(users, map[string]any{"name": fmt.Sprintf("@u%03d:example.org", i)})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"users": users, "total": 237})
		}))
		defer srv.Close()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		args := []string{"-c", writeConfig(t, srv), "users", "250"}

		err := main.NewMain().Run(context.Background(), args, stdout, stderr)

		require.NoError(t, err, stderr.String())
		out := stdout.String()
		assert.Contains(t, out, "@u000:example.org")
		assert.Contains(t, out, "@u236:example.org")
		assert.Contains(t, out, "Showing 237 of 237 users")
		rows := 0
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(line, "| @u") {
				rows++
			}
		}
		assert.Equal(t, 237, rows)
	})

	t.Run("shows the server version as JSON", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/_synapse/admin/v1/server_version", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"server_version":"1.120.0"}`))
		}))
		defer srv.Close()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		args := []string{"-c", writeConfig(t, srv), "--json", "version"}

		err := main.NewMain().Run(context.Background(), args, stdout, stderr)

		require.NoError(t, err, stderr.String())
		assert.JSONEq(t, fmt.Sprintf(`{"matrixctl":%q,"synapse":"1.120.0"}`, matrixctl.Version), stdout.String())
	})

	t.Run("reports a rejected token", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"Invalid access token passed."}`))
		}))
		defer srv.Close()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		args := []string{"-c", writeConfig(t, srv), "version"}

		err := main.NewMain().Run(context.Background(), args, stdout, stderr)

		require.Error(t, err)
		assert.Equal(t, 1, main.ExitCode(err))
		assert.Contains(t, stderr.String(), "error:")
		assert.Empty(t, stdout.String())
	})

	t.Run("unknown server profile is a config error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
		args := []string{"-c", writeConfig(t, srv), "-s", "staging", "version"}

		err := main.NewMain().Run(context.Background(), args, stdout, stderr)

		require.Error(t, err)
		assert.Equal(t, matrixctl.ECONFIG, matrixctl.ErrorCode(err))
		assert.Contains(t, stderr.String(), `server "staging" is not configured`)
	})
}
