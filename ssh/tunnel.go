package ssh

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/fwojciec/matrixctl"
)

// Tunnel forwards connections accepted on a local port to a remote
// address reachable from the SSH host.
type Tunnel struct {
	listener net.Listener
	client   *Client
	remote   string

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Forward listens on an OS-chosen loopback port and forwards every
// connection to remote through the SSH connection. The tunnel is closed
// with the client.
func (c *Client) Forward(remote string) (*Tunnel, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, matrixctl.Errorf(matrixctl.EINTERNAL, "cannot open tunnel listener: %v", err)
	}
	t := &Tunnel{
		listener: ln,
		client:   c,
		remote:   remote,
		conns:    make(map[net.Conn]struct{}),
	}
	c.closers = append(c.closers, t.Close)

	t.wg.Add(1)
	go t.accept()
	c.logger.Debug().Str("local", ln.Addr().String()).Str("remote", remote).Msg("ssh tunnel open")
	return t, nil
}

// Addr returns the local address of the tunnel.
func (t *Tunnel) Addr() *net.TCPAddr {
	return t.listener.Addr().(*net.TCPAddr)
}

func (t *Tunnel) accept() {
	defer t.wg.Done()
	for {
		local, err := t.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				t.client.logger.Warn().Err(err).Msg("tunnel accept failed")
			}
			return
		}
		if !t.track(local) {
			local.Close()
			return
		}
		t.wg.Add(1)
		go t.pipe(local)
	}
}

func (t *Tunnel) pipe(local net.Conn) {
	defer t.wg.Done()
	defer t.untrack(local)

	remote, err := t.client.conn.Dial("tcp", t.remote)
	if err != nil {
		t.client.logger.Warn().Err(err).Str("remote", t.remote).Msg("tunnel dial failed")
		return
	}
	if !t.track(remote) {
		remote.Close()
		return
	}
	defer t.untrack(remote)

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

func (t *Tunnel) track(c net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[c] = struct{}{}
	return true
}

func (t *Tunnel) untrack(c net.Conn) {
	t.mu.Lock()
	delete(t.conns, c)
	t.mu.Unlock()
	c.Close()
}

// Close stops accepting connections and closes the open ones.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	for c := range t.conns {
		c.Close()
	}
	t.mu.Unlock()

	err := t.listener.Close()
	t.wg.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
