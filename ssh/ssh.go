// Package ssh runs commands on the homeserver host and forwards local ports
// to it over SSH.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fwojciec/matrixctl"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// Ensure Client implements matrixctl.CommandRunner at compile time.
var _ matrixctl.CommandRunner = (*Client)(nil)

// Client is an SSH connection to the homeserver host.
type Client struct {
	conn   *ssh.Client
	logger zerolog.Logger

	// closers run on Close, before the connection is closed.
	closers []func() error
}

// ClientConfig returns the client configuration for cfg. Keys come from
// the SSH agent when SSH_AUTH_SOCK is set and from the default identity
// files in ~/.ssh. Host keys are checked against ~/.ssh/known_hosts.
func ClientConfig(cfg matrixctl.SSHConfig, logger zerolog.Logger) (*ssh.ClientConfig, func() error, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, matrixctl.Errorf(matrixctl.ECONFIG, "cannot locate home directory: %v", err)
	}

	hostKeys, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts"))
	if err != nil {
		return nil, nil, matrixctl.Errorf(matrixctl.ECONFIG, "cannot read known_hosts: %v", err)
	}

	var signers []ssh.Signer
	closeAgent := func() error { return nil }
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			closeAgent = conn.Close
			if s, err := agent.NewClient(conn).Signers(); err == nil {
				signers = append(signers, s...)
			}
		} else {
			logger.Debug().Err(err).Msg("ssh agent unavailable")
		}
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		data, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			logger.Debug().Err(err).Str("key", name).Msg("skipping ssh key")
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) == 0 {
		_ = closeAgent()
		return nil, nil, matrixctl.Errorf(matrixctl.EAUTH, "no usable SSH key: start an agent or add a key to ~/.ssh")
	}

	user := cfg.User
	if user == "" {
		user = os.Getenv("USER")
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signers...)},
		HostKeyCallback: hostKeys,
		Timeout:         DefaultDialTimeout,
	}, closeAgent, nil
}

// Connect dials the host of cfg with ClientConfig.
func Connect(ctx context.Context, cfg matrixctl.SSHConfig, logger zerolog.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, matrixctl.Errorf(matrixctl.ECONFIG, "ssh.address is not configured")
	}
	config, closeAgent, err := ClientConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	c, err := Dial(ctx, net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port)), config, logger)
	if err != nil {
		_ = closeAgent()
		return nil, err
	}
	c.closers = append(c.closers, closeAgent)
	return c, nil
}

// Dial opens an SSH connection to addr.
func Dial(ctx context.Context, addr string, config *ssh.ClientConfig, logger zerolog.Logger) (*Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.ETRANSPORT, "cannot reach %s: %v", addr, err)
	}
	sc, chans, reqs, err := ssh.NewClientConn(nc, addr, config)
	if err != nil {
		nc.Close()
		return nil, matrixctl.Errorf(matrixctl.EAUTH, "ssh handshake with %s failed: %v", addr, err)
	}
	logger.Debug().Str("addr", addr).Str("user", config.User).Msg("ssh connected")
	return &Client{conn: ssh.NewClient(sc, chans, reqs), logger: logger}, nil
}

// Run executes command in a new session and captures its output. A
// non-zero exit status is reported in the result, not as an error.
func (c *Client) Run(ctx context.Context, command string) (*matrixctl.CommandResult, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.ETRANSPORT, "cannot open ssh session: %v", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		return nil, ctx.Err()
	case err = <-done:
	}

	result := &matrixctl.CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *ssh.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitStatus()
	default:
		return nil, matrixctl.Errorf(matrixctl.ETRANSPORT, "ssh command %q failed: %v", command, err)
	}
	c.logger.Debug().Str("command", command).Int("exit_code", result.ExitCode).Msg("ssh command")
	return result, nil
}

// Close tears down every tunnel opened through the client and closes the
// connection.
func (c *Client) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ssh client: %w", errors.Join(errs...))
	}
	return nil
}
