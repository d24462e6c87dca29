package reactor

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Listen binds and listens on addr:port, sets the resulting socket
// non-blocking, and returns its raw fd for registration with a
// Reactor.
//
// ln.File() dups the listener's fd into a new *os.File; fd is that dup's
// descriptor, not ln's own. The caller must retain the returned *os.File
// for the process lifetime alongside ln — letting it become unreachable
// lets its finalizer close fd out from under the epoll registration,
// even though ln itself is still open.
func Listen(addr, port string) (fd int, ln *net.TCPListener, f *os.File, err error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(addr, port))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("resolving %s:%s: %w", addr, port, err)
	}

	ln, err = net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("listening on %s:%s: %w", addr, port, err)
	}

	f, err = ln.File()
	if err != nil {
		ln.Close()
		return 0, nil, nil, fmt.Errorf("extracting fd for %s:%s: %w", addr, port, err)
	}

	fd = int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		f.Close()
		ln.Close()
		return 0, nil, nil, fmt.Errorf("setting %s:%s non-blocking: %w", addr, port, err)
	}

	return fd, ln, f, nil
}
