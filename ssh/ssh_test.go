package ssh_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	mssh "github.com/fwojciec/matrixctl/ssh"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// startServer runs an in-process SSH server accepting the password "pw".
// It answers exec requests for "echo hi" and "fail" and forwards
// direct-tcpip channels.
func startServer(t *testing.T) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == "pw" {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(nc, config)
		}
	}()
	return ln.Addr().String()
}

func serveConn(nc net.Conn, config *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(nc, config)
	if err != nil {
		nc.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		switch newCh.ChannelType() {
		case "session":
			ch, chReqs, err := newCh.Accept()
			if err != nil {
				continue
			}
			go serveSession(ch, chReqs)
		case "direct-tcpip":
			var target struct {
				Host     string
				Port     uint32
				OrigHost string
				OrigPort uint32
			}
			if err := ssh.Unmarshal(newCh.ExtraData(), &target); err != nil {
				_ = newCh.Reject(ssh.ConnectionFailed, err.Error())
				continue
			}
			conn, err := net.Dial("tcp", net.JoinHostPort(target.Host, strconv.Itoa(int(target.Port))))
			if err != nil {
				_ = newCh.Reject(ssh.ConnectionFailed, err.Error())
				continue
			}
			ch, chReqs, err := newCh.Accept()
			if err != nil {
				conn.Close()
				continue
			}
			go ssh.DiscardRequests(chReqs)
			go func() {
				_, _ = io.Copy(ch, conn)
				ch.Close()
			}()
			go func() {
				_, _ = io.Copy(conn, ch)
				conn.Close()
			}()
		default:
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
		}
	}
}

func serveSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()
	for req := range reqs {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var exec struct{ Command string }
		_ = ssh.Unmarshal(req.Payload, &exec)
		_ = req.Reply(true, nil)

		var status uint32
		switch exec.Command {
		case "echo hi":
			_, _ = io.WriteString(ch, "hi\n")
		default:
			_, _ = io.WriteString(ch.Stderr(), "command not found\n")
			status = 127
		}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}

func dial(t *testing.T, addr string) *mssh.Client {
	t.Helper()
	config := &ssh.ClientConfig{
		User:            "matrix",
		Auth:            []ssh.AuthMethod{ssh.Password("pw")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}
	c, err := mssh.Dial(context.Background(), addr, config, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestClient_Run(t *testing.T) {
	t.Parallel()

	addr := startServer(t)

	t.Run("captures stdout", func(t *testing.T) {
		t.Parallel()

		c := dial(t, addr)
		defer c.Close()

		res, err := c.Run(context.Background(), "echo hi")

		require.NoError(t, err)
		assert.Equal(t, "hi\n", res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("reports a non-zero exit status", func(t *testing.T) {
		t.Parallel()

		c := dial(t, addr)
		defer c.Close()

		res, err := c.Run(context.Background(), "nope")

		require.NoError(t, err)
		assert.Equal(t, 127, res.ExitCode)
		assert.Equal(t, "command not found\n", res.Stderr)
	})
}

func TestDial(t *testing.T) {
	t.Parallel()

	addr := startServer(t)
	config := &ssh.ClientConfig{
		User:            "matrix",
		Auth:            []ssh.AuthMethod{ssh.Password("wrong")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}

	_, err := mssh.Dial(context.Background(), addr, config, zerolog.Nop())

	require.Error(t, err)
}

func TestClient_Forward(t *testing.T) {
	t.Parallel()

	// Echo server standing in for PostgreSQL on the remote host.
	echo, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer echo.Close()
	go func() {
		for {
			conn, err := echo.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()

	c := dial(t, startServer(t))
	tunnel, err := c.Forward(echo.Addr().String())
	require.NoError(t, err)

	conn, err := net.Dial("tcp", tunnel.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	conn.Close()

	require.NoError(t, c.Close())
	_, err = net.Dial("tcp", tunnel.Addr().String())
	assert.Error(t, err, "the tunnel is torn down with the client")
}
