//go:build !windows

package transport

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// unixConn wraps a *net.UnixConn, adding the SCM_RIGHTS ancillary-data
// round trip the frame format needs for FD-typed arguments. Every FD batch
// for one frame rides along with a single one-byte marker write so the
// kernel attaches the control message to one sendmsg(2)/recvmsg(2) call —
// the messenger writes the length-prefixed body and then the fd-count
// prefix as ordinary stream bytes immediately before this marker, so the two halves of one
// frame stay adjacent on the wire even though FD transfer is its own
// syscall.
type unixConn struct {
	*net.UnixConn
}

// WrapUnixConn adapts an already-established *net.UnixConn (typically one
// returned from a Listener's Accept, or set up directly in tests) to the
// Conn interface.
func WrapUnixConn(c *net.UnixConn) Conn {
	return &unixConn{c}
}

func Dial() (Conn, error) {
	path := SocketPath()
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", path, err)
	}
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("transport: unexpected conn type %T", conn)
	}
	return &unixConn{uc}, nil
}

// Listen opens the server-side listener at the resolved socket path,
// removing a stale socket file left behind by an unclean shutdown.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("transport: mkdir: %w", err)
	}
	_ = os.Remove(path)
	return net.Listen("unix", path)
}

func (c *unixConn) SendFDs(fds []int) error {
	if len(fds) == 0 {
		return nil
	}
	rights := unix.UnixRights(fds...)
	_, _, err := c.WriteMsgUnix([]byte{0}, rights, nil)
	if err != nil {
		return fmt.Errorf("transport: send fds: %w", err)
	}
	return nil
}

func (c *unixConn) RecvFDs(n int) ([]int, error) {
	if n == 0 {
		return nil, nil
	}
	oob := make([]byte, unix.CmsgSpace(n*4))
	buf := make([]byte, 1)
	_, oobn, _, _, err := c.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, fmt.Errorf("transport: recv fds: %w", err)
	}
	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("transport: parse control message: %w", err)
	}
	var fds []int
	for _, scm := range scms {
		parsed, err := unix.ParseUnixRights(&scm)
		if err != nil {
			return nil, fmt.Errorf("transport: parse unix rights: %w", err)
		}
		fds = append(fds, parsed...)
	}
	if len(fds) != n {
		return nil, fmt.Errorf("transport: expected %d fds, got %d", n, len(fds))
	}
	return fds, nil
}
