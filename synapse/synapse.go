// Package synapse implements the matrixctl services on top of the Synapse
// admin API and the Matrix client-server API.
package synapse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fwojciec/matrixctl"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// API path prefixes.
const (
	AdminV1  = "/_synapse/admin/v1"
	AdminV2  = "/_synapse/admin/v2"
	ClientV3 = "/_matrix/client/v3"
)

// DefaultPollInterval is the delay between status polls of background
// admin jobs.
const DefaultPollInterval = time.Second

// Client builds authenticated requests for one server profile and sends
// them through the configured transports.
type Client struct {
	Server *matrixctl.Server
	Tokens matrixctl.TokenSource
	Doer   matrixctl.Doer
	Fanout matrixctl.FanoutDoer
	Logger zerolog.Logger

	PollInterval time.Duration

	// NewTxnID returns a client transaction identifier.
	NewTxnID func() string
}

// NewClient creates a new Client.
func NewClient(server *matrixctl.Server, tokens matrixctl.TokenSource, doer matrixctl.Doer, fanout matrixctl.FanoutDoer, logger zerolog.Logger) *Client {
	return &Client{
		Server:       server,
		Tokens:       tokens,
		Doer:         doer,
		Fanout:       fanout,
		Logger:       logger,
		PollInterval: DefaultPollInterval,
		NewTxnID:     uuid.NewString,
	}
}

// Request returns an authenticated request for path.
func (c *Client) Request(ctx context.Context, path string) (matrixctl.Request, error) {
	token, err := c.Tokens.AccessToken(ctx)
	if err != nil {
		return matrixctl.Request{}, err
	}
	return c.Server.BaseRequest(path).WithToken(token), nil
}

// Do sends req and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req matrixctl.Request, out any) error {
	resp, err := c.Doer.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// poll calls fetch every PollInterval until the job reaches a final state.
// Every observed status is passed to status.
func (c *Client) poll(ctx context.Context, what string, fetch func(context.Context) (matrixctl.JobStatus, error), status matrixctl.StatusFunc) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := fetch(ctx)
		if err != nil {
			return err
		}
		c.Logger.Debug().Str("job", what).Str("status", st.Status).Msg("job status")
		if status != nil {
			status(st)
		}

		switch st.Status {
		case matrixctl.StatusComplete:
			return nil
		case matrixctl.StatusFailed:
			if st.Error == "" {
				return matrixctl.Errorf(matrixctl.ESERVER, "%s failed", what)
			}
			return matrixctl.Errorf(matrixctl.ESERVER, "%s failed: %s", what, st.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func decodeItems[T any](items []json.RawMessage) ([]*T, error) {
	out := make([]*T, 0, len(items))
	for _, raw := range items {
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, matrixctl.Errorf(matrixctl.ESERVER, "cannot decode list item: %v", err)
		}
		out = append(out, v)
	}
	return out, nil
}
