package synapse_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/fwojciec/matrixctl"
	mhttp "github.com/fwojciec/matrixctl/http"
	"github.com/fwojciec/matrixctl/synapse"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newClient returns a synapse client addressing srv with a static token.
func newClient(t *testing.T, srv *httptest.Server) *synapse.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	empty := ""
	server := &matrixctl.Server{
		Name: "test",
		API: matrixctl.API{
			Domain:          u.Host,
			Scheme:          "http",
			Subdomain:       &empty,
			Token:           "secret",
			ConcurrentLimit: 4,
		},
	}
	server.ApplyDefaults()

	doer := mhttp.NewClient()
	c := synapse.NewClient(server, matrixctl.StaticTokenSource("secret"), doer, mhttp.NewFanout(doer), zerolog.Nop())
	c.PollInterval = 5 * time.Millisecond
	c.NewTxnID = func() string { return "txn1" }
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}
