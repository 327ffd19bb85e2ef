package synapse_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/fwojciec/matrixctl"
	"github.com/fwojciec/matrixctl/synapse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userList serves total users in pages of at most 100 and records the
// requested cursors.
type userList struct {
	mu      sync.Mutex
	total   int
	cursors []int
	limits  []int
	fail    map[int]bool
	// noTotal drops "total" so clients have to follow next_token.
	noTotal bool
}

func (l *userList) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	from, _ := strconv.Atoi(r.URL.Query().Get("from"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	l.mu.Lock()
	l.cursors = append(l.cursors, from)
	l.limits = append(l.limits, limit)
	fail := l.fail[from] && limit > 1
	l.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"errcode":"M_UNKNOWN","error":"boom"}`)
		return
	}

	limit = min(limit, 100)
	users := []map[string]any{}
	for i := from; i < min(from+limit, l.total); i++ {
		users = append(users, map[string]any{"name": fmt.Sprintf("@u%03d:example.org", i), "admin": 0, "deactivated": false})
	}
	resp := map[string]any{"users": users}
	if !l.noTotal {
		resp["total"] = l.total
	}
	if from+limit < l.total {
		resp["next_token"] = strconv.Itoa(from + limit)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestUserService_FindUsers(t *testing.T) {
	t.Parallel()

	t.Run("fetches the requested users concurrently on page boundaries", func(t *testing.T) {
		t.Parallel()

		list := &userList{total: 237}
		srv := httptest.NewServer(list)
		defer srv.Close()

		users, total, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{Limit: 250})

		require.NoError(t, err)
		assert.Equal(t, 237, total)
		require.Len(t, users, 237)
		for i, u := range users {
			assert.Equal(t, fmt.Sprintf("@u%03d:example.org", i), u.Name)
		}
		assert.Equal(t, []int{0}, list.cursors[:1], "probe comes first")
		assert.Equal(t, 1, list.limits[0])
		assert.ElementsMatch(t, []int{0, 100, 200}, list.cursors[1:])
		assert.Equal(t, []int{100, 100, 100}, list.limits[1:])
	})

	t.Run("follows next_token when the server reports no total", func(t *testing.T) {
		t.Parallel()

		list := &userList{total: 150, noTotal: true}
		srv := httptest.NewServer(list)
		defer srv.Close()

		users, total, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{})

		require.NoError(t, err)
		assert.Equal(t, 150, total)
		require.Len(t, users, 150)
		for i, u := range users {
			assert.Equal(t, fmt.Sprintf("@u%03d:example.org", i), u.Name)
		}
		assert.Equal(t, []int{0, 1, 101}, list.cursors)
	})

	t.Run("stops following next_token at the limit", func(t *testing.T) {
		t.Parallel()

		list := &userList{total: 150, noTotal: true}
		srv := httptest.NewServer(list)
		defer srv.Close()

		users, total, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{Limit: 50})

		require.NoError(t, err)
		assert.Equal(t, 50, total)
		require.Len(t, users, 50)
		assert.Equal(t, "@u049:example.org", users[49].Name)
		assert.Equal(t, []int{0, 1}, list.cursors)
		assert.Equal(t, []int{1, 49}, list.limits)
	})

	t.Run("truncates to the limit", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(&userList{total: 237})
		defer srv.Close()

		users, total, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{Limit: 5, From: 10})

		require.NoError(t, err)
		assert.Equal(t, 237, total)
		require.Len(t, users, 5)
		assert.Equal(t, "@u010:example.org", users[0].Name)
	})

	t.Run("returns an empty list past the end", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(&userList{total: 3})
		defer srv.Close()

		users, total, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{From: 10})

		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, users)
	})

	t.Run("returns the surviving pages with a partial error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(&userList{total: 237, fail: map[int]bool{100: true}})
		defer srv.Close()

		users, _, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{})

		require.Error(t, err)
		assert.Equal(t, matrixctl.EPARTIAL, matrixctl.ErrorCode(err))
		assert.Len(t, users, 137)
	})

	t.Run("sends the filters", func(t *testing.T) {
		t.Parallel()

		var query []string
		var mu sync.Mutex
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			query = append(query, r.URL.RawQuery)
			mu.Unlock()
			writeJSON(t, w, http.StatusOK, map[string]any{"users": []any{}, "total": 0})
		}))
		defer srv.Close()

		_, _, err := synapse.NewUserService(newClient(t, srv)).FindUsers(context.Background(), matrixctl.UserFilter{Guests: true, Name: "ali"})

		require.NoError(t, err)
		require.Len(t, query, 1)
		assert.Contains(t, query[0], "guests=true")
		assert.Contains(t, query[0], "deactivated=false")
		assert.Contains(t, query[0], "name=ali")
	})
}

func TestUserService_FindUserByID(t *testing.T) {
	t.Parallel()

	t.Run("returns the user with threepids", func(t *testing.T) {
		t.Parallel()

		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			writeJSON(t, w, http.StatusOK, map[string]any{
				"name":      "@alice:example.org",
				"admin":     true,
				"threepids": []map[string]any{{"medium": "email", "address": "a@b"}},
			})
		}))
		defer srv.Close()

		user, err := synapse.NewUserService(newClient(t, srv)).FindUserByID(context.Background(), "@alice:example.org")

		require.NoError(t, err)
		assert.Equal(t, "/_synapse/admin/v2/users/@alice:example.org", path)
		assert.Equal(t, "@alice:example.org", user.Name)
		assert.True(t, bool(user.Admin))
		require.Len(t, user.Threepids, 1)
		assert.Equal(t, "a@b", user.Threepids[0].Address)
	})

	t.Run("maps M_NOT_FOUND to ENOTFOUND", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusNotFound, map[string]any{"errcode": "M_NOT_FOUND", "error": "User not found"})
		}))
		defer srv.Close()

		_, err := synapse.NewUserService(newClient(t, srv)).FindUserByID(context.Background(), "@ghost:example.org")

		require.Error(t, err)
		assert.Equal(t, matrixctl.ENOTFOUND, matrixctl.ErrorCode(err))
		assert.Equal(t, "user @ghost:example.org not found", matrixctl.ErrorMessage(err))
	})
}

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	var method, path string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(t, w, http.StatusCreated, map[string]any{"name": "@bob:example.org"})
	}))
	defer srv.Close()

	err := synapse.NewUserService(newClient(t, srv)).CreateUser(context.Background(), "@bob:example.org", "hunter2", true)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/_synapse/admin/v2/users/@bob:example.org", path)
	assert.Equal(t, map[string]any{"password": "hunter2", "admin": true}, body)
}

func TestUserService_IsAdmin(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_synapse/admin/v1/users/@bob:example.org/admin", r.URL.Path)
		writeJSON(t, w, http.StatusOK, map[string]any{"admin": true})
	}))
	defer srv.Close()

	admin, err := synapse.NewUserService(newClient(t, srv)).IsAdmin(context.Background(), "@bob:example.org")

	require.NoError(t, err)
	assert.True(t, admin)
}
