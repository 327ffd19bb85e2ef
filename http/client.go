// Package http executes matrixctl requests against the homeserver: single
// calls, bounded fan-out, and streamed downloads.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fwojciec/matrixctl"
	"golang.org/x/net/http2"
)

// Remediation hints for structural failures.
const (
	RedirectHint = "the admin API answered with a redirect; set " +
		"matrix_synapse_container_labels_public_client_synapse_admin_api_enabled: true " +
		"in the playbook vars and redeploy with \"matrixctl deploy\""
	NotFoundHint = "the admin API route is not exposed; set " +
		"matrix_synapse_container_labels_public_client_synapse_admin_api_enabled: true " +
		"in the playbook vars and redeploy"
	UnknownTokenHint = "the homeserver rejected the access token; update api.token " +
		"or remove the cached OIDC token and log in again"
)

// Ensure Client implements matrixctl.Doer at compile time.
var _ matrixctl.Doer = (*Client)(nil)

// Client executes single requests. Redirects are never followed.
type Client struct {
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client. The redirect policy is
// still overridden.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.client = c
	}
}

// NewTransport returns a transport with HTTP/2 enabled.
func NewTransport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	// ConfigureTransport only fails when the transport was already
	// configured for HTTP/2.
	_ = http2.ConfigureTransport(tr)
	return tr
}

// NewClient creates a new Client.
func NewClient(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Transport: NewTransport()}
	}
	noRedirects := *c.client
	noRedirects.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.client = &noRedirects
	return c
}

// Do sends req and classifies the response:
//   - 302 is a transport error with a playbook hint,
//   - 404 without a Matrix error body is a transport error naming the
//     label that exposes the admin API,
//   - M_UNKNOWN_TOKEN is an auth error,
//   - a status in the success set returns the response,
//   - anything else returns a *matrixctl.ResponseError.
func (c *Client) Do(ctx context.Context, req matrixctl.Request) (*matrixctl.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(req, err)
	}
	return classify(req, resp.StatusCode, resp.Header, body)
}

func (c *Client) send(ctx context.Context, req matrixctl.Request) (*http.Response, error) {
	body, err := req.Body()
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL(), body)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINVALID, "cannot build request %s %s: %v", req.Method, req.Path, err)
	}
	for k, v := range req.Headers() {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(req, err)
	}
	return resp, nil
}

func classify(req matrixctl.Request, status int, header http.Header, body []byte) (*matrixctl.Response, error) {
	var merr struct {
		ErrCode string `json:"errcode"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &merr)

	switch {
	case status == http.StatusFound:
		return nil, matrixctl.Errorf(matrixctl.ETRANSPORT, "%s %s: %s", req.Method, req.Path, RedirectHint)
	case status == http.StatusNotFound && merr.ErrCode == "":
		return nil, matrixctl.Errorf(matrixctl.ETRANSPORT, "%s %s returned 404: %s", req.Method, req.Path, NotFoundHint)
	case merr.ErrCode == matrixctl.ErrCodeUnknownToken:
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "%s", UnknownTokenHint)
	case req.IsSuccess(status):
		return &matrixctl.Response{StatusCode: status, Header: header, Body: body}, nil
	default:
		return nil, &matrixctl.ResponseError{
			StatusCode: status,
			ErrCode:    merr.ErrCode,
			Message:    merr.Error,
			Body:       bytes.TrimSpace(body),
		}
	}
}

func transportError(req matrixctl.Request, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return matrixctl.Errorf(matrixctl.ETRANSPORT, "%s %s timed out after %s", req.Method, req.URL(), req.Timeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	return matrixctl.Errorf(matrixctl.ETRANSPORT, "%s %s: %v", req.Method, req.URL(), err)
}

// CloseIdleConnections closes connections kept alive by the client.
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
