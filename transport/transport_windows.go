//go:build windows

package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"github.com/stardustxr/client-go/errs"
)

// namedPipeConn wraps a go-winio named pipe. Windows named pipes have no
// ancillary-data facility equivalent to SCM_RIGHTS, so FD-typed arguments
// are unsupported on this transport — a documented platform gap, not a
// protocol violation: every test that exercises FD passing runs over the
// Unix transport.
type namedPipeConn struct {
	conn net.Conn
}

func pipeName() string {
	return `\\.\pipe\` + SocketPath()
}

func Dial() (Conn, error) {
	conn, err := winio.DialPipeContext(context.Background(), pipeName())
	if err != nil {
		return nil, fmt.Errorf("transport: dial pipe %s: %w", pipeName(), err)
	}
	return &namedPipeConn{conn}, nil
}

func Listen() (net.Listener, error) {
	l, err := winio.ListenPipe(pipeName(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: listen pipe %s: %w", pipeName(), err)
	}
	return l, nil
}

func (c *namedPipeConn) Read(p []byte) (int, error)  { return c.conn.Read(p) }
func (c *namedPipeConn) Write(p []byte) (int, error) { return c.conn.Write(p) }
func (c *namedPipeConn) Close() error                { return c.conn.Close() }

func (c *namedPipeConn) SendFDs(fds []int) error {
	if len(fds) == 0 {
		return nil
	}
	return errs.ErrFDPassingUnsupported
}

func (c *namedPipeConn) RecvFDs(n int) ([]int, error) {
	if n == 0 {
		return nil, nil
	}
	return nil, errs.ErrFDPassingUnsupported
}
