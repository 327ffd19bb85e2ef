package http_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/fwojciec/matrixctl"
	mhttp "github.com/fwojciec/matrixctl/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRequest addresses path on the test server.
func newRequest(t *testing.T, srv *httptest.Server, path string) matrixctl.Request {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return matrixctl.NewRequest(u.Host, path).WithScheme("http").WithSubdomain("")
}

func TestClient_Do(t *testing.T) {
	t.Parallel()

	t.Run("sends headers, params and body", func(t *testing.T) {
		t.Parallel()

		var got *http.Request
		var body string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r
			data, _ := io.ReadAll(r.Body)
			body = string(data)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		req := newRequest(t, srv, "/_synapse/admin/v2/users/@bob:example.org").
			WithMethod(http.MethodPut).
			WithParam("from", 0).
			WithToken("secret").
			WithJSON(map[string]any{"admin": true})

		resp, err := mhttp.NewClient().Do(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
		assert.Equal(t, http.MethodPut, got.Method)
		assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
		assert.Equal(t, "matrixctl"+matrixctl.Version, got.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
		assert.Equal(t, "0", got.URL.Query().Get("from"))
		assert.JSONEq(t, `{"admin":true}`, body)
	})

	t.Run("redirect is a transport error and is not followed", func(t *testing.T) {
		t.Parallel()

		followed := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/elsewhere" {
				followed = true
				return
			}
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
		}))
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(), newRequest(t, srv, "/_synapse/admin/v1/rooms"))

		require.Error(t, err)
		assert.Equal(t, matrixctl.ETRANSPORT, matrixctl.ErrorCode(err))
		assert.Contains(t, matrixctl.ErrorMessage(err), "matrix_synapse_container_labels_public_client_synapse_admin_api_enabled")
		assert.False(t, followed)
	})

	t.Run("bare 404 names the admin api label", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(), newRequest(t, srv, "/_synapse/admin/v1/rooms"))

		require.Error(t, err)
		assert.Equal(t, matrixctl.ETRANSPORT, matrixctl.ErrorCode(err))
		assert.Contains(t, matrixctl.ErrorMessage(err), "matrix_synapse_container_labels_public_client_synapse_admin_api_enabled: true")
	})

	t.Run("matrix 404 is not found", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errcode":"M_NOT_FOUND","error":"User not found"}`))
		}))
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(), newRequest(t, srv, "/_synapse/admin/v2/users/@x:example.org"))

		require.Error(t, err)
		assert.Equal(t, matrixctl.ENOTFOUND, matrixctl.ErrorCode(err))
		assert.True(t, matrixctl.IsMatrixError(err, matrixctl.ErrCodeNotFound))
	})

	t.Run("unknown token is an auth error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"Invalid access token passed."}`))
		}))
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(), newRequest(t, srv, "/_synapse/admin/v1/rooms"))

		require.Error(t, err)
		assert.Equal(t, matrixctl.EAUTH, matrixctl.ErrorCode(err))
	})

	t.Run("other failures carry errcode and body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errcode":"M_UNKNOWN","error":"Bad limit"}`))
		}))
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(), newRequest(t, srv, "/_synapse/admin/v1/rooms"))

		require.Error(t, err)
		var re *matrixctl.ResponseError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, 400, re.StatusCode)
		assert.Equal(t, "M_UNKNOWN", re.ErrCode)
		assert.Equal(t, "Bad limit", re.Message)
		assert.Equal(t, matrixctl.ESERVER, matrixctl.ErrorCode(err))
	})

	t.Run("explicit success codes", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(),
			newRequest(t, srv, "/x").WithSuccessCodes(http.StatusOK))

		require.Error(t, err)
		assert.Equal(t, matrixctl.ESERVER, matrixctl.ErrorCode(err))
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := mhttp.NewClient().Do(context.Background(),
			newRequest(t, srv, "/slow").WithTimeout(20*time.Millisecond))

		require.Error(t, err)
		assert.Equal(t, matrixctl.ETRANSPORT, matrixctl.ErrorCode(err))
	})

	t.Run("connection failure is a transport error", func(t *testing.T) {
		t.Parallel()

		req := matrixctl.NewRequest("non-existent-host.invalid", "/x").
			WithSubdomain("").
			WithTimeout(time.Second)

		_, err := mhttp.NewClient().Do(context.Background(), req)

		require.Error(t, err)
		assert.Equal(t, matrixctl.ETRANSPORT, matrixctl.ErrorCode(err))
	})
}
