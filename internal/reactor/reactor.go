// Package reactor implements the single-threaded, edge-triggered event
// loop: readiness multiplexing over listening sockets via epoll, inline
// accept-and-serve per connection, and the per-connection read state
// machine with its bounded request queue.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jacobsa/reqtrace"
	"golang.org/x/sys/unix"

	"github.com/aksel-webserv/webserv/internal/httperr"
	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// readTimeout is the per-read-attempt deadline used to detect idle
// peers.
const readTimeout = 500 * time.Millisecond

// initialBufSize is the starting capacity of a connection's read
// buffer; it grows as needed.
const initialBufSize = 4096

// errReadTimeout marks a read that hit readTimeout with no complete
// request yet parsed.
var errReadTimeout = errors.New("read timeout")

// Dispatcher turns a parsed request into a response. Implementations
// never return an error: every failure mode is rendered as an HTTP
// error response internally, so only transport errors close the
// connection without a response. ctx carries the request's reqtrace
// span so a dispatcher that does its own sub-tracing (e.g. around a CGI
// call) reports under it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *httpmsg.Request, listenerFD int) httpmsg.Response
}

// Reactor owns the epoll fd and the set of listening sockets
// multiplexed on it.
type Reactor struct {
	epfd       int
	listeners  []int
	dispatcher Dispatcher

	debugLogger *log.Logger
	errorLogger *log.Logger
}

// New creates a Reactor over the given listener fds (already bound,
// listening, and set non-blocking by the caller) that will hand parsed
// requests to dispatcher. Either logger may be nil to disable that
// stream.
func New(listenerFDs []int, dispatcher Dispatcher, debugLogger, errorLogger *log.Logger) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}

	r := &Reactor{
		epfd:        epfd,
		listeners:   append([]int(nil), listenerFDs...),
		dispatcher:  dispatcher,
		debugLogger: debugLogger,
		errorLogger: errorLogger,
	}

	for _, fd := range listenerFDs {
		ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			unix.Close(epfd)
			return nil, fmt.Errorf("epoll_ctl(ADD, %d): %w", fd, err)
		}
	}

	return r, nil
}

// Close releases the epoll fd. Listener fds are owned by the caller.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}

func (r *Reactor) debugf(format string, args ...interface{}) {
	if r.debugLogger != nil {
		r.debugLogger.Printf(format, args...)
	}
}

func (r *Reactor) errorf(format string, args ...interface{}) {
	if r.errorLogger != nil {
		r.errorLogger.Printf(format, args...)
	}
}

// Run blocks forever in the readiness-wait syscall, dispatching ready
// listener fds to the accept loop. It only returns on an unrecoverable
// epoll_wait error.
func (r *Reactor) Run() error {
	events := make([]unix.EpollEvent, len(r.listeners)+16)

	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			lfd := int(events[i].Fd)
			r.acceptLoop(lfd)
		}
	}
}

// acceptLoop drains pending connections on lfd until EAGAIN, handling
// each inline within this reactor iteration. Edge-triggered accept is
// the only concurrency here; connected sockets are never added to
// epoll. Accepted sockets stay blocking: reads on them are governed by
// the SO_RCVTIMEO deadline, which a non-blocking socket would ignore.
func (r *Reactor) acceptLoop(lfd int) {
	for {
		nfd, _, err := unix.Accept4(lfd, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			r.errorf("accept(%d): %v", lfd, err)
			return
		}

		r.debugf("accepted fd=%d on listener=%d", nfd, lfd)
		r.serveConnection(nfd, lfd)
	}
}

// serveConnection runs the per-connection state machine: read one
// request, queue it, drain the queue through the dispatcher, looping
// while keep-alive holds. Errors here are isolated to this connection;
// the reactor keeps accepting.
func (r *Reactor) serveConnection(fd, listenerFD int) {
	defer func() {
		if err := unix.Close(fd); err != nil {
			r.debugf("close(%d): %v", fd, err)
		}
	}()

	q := newRequestQueue()
	buf := make([]byte, 0, initialBufSize)
	keepAlive := true

	for keepAlive {
		if err := setReadTimeout(fd, readTimeout); err != nil {
			r.errorf("set read timeout on fd=%d: %v", fd, err)
			return
		}

		req, consumed, err := readOneRequest(fd, &buf, listenerFD, fd)
		if err != nil {
			switch {
			case errors.Is(err, errReadTimeout):
				// Idle peer; close without a response.
				return
			case errors.Is(err, io.EOF):
				return
			case errors.Is(err, httperr.ErrParseRequest):
				r.debugf("parse error on fd=%d: %v", fd, err)
				writeErrorAndClose(fd, 400)
				return
			default:
				r.errorf("read error on fd=%d: %v", fd, err)
				return
			}
		}
		buf = buf[consumed:]

		if !q.push(req) {
			r.debugf("request queue full on fd=%d", fd)
			writeErrorAndClose(fd, 503)
			return
		}

		keepAlive = req.KeepAlive()

		for {
			qreq, ok := q.pop()
			if !ok {
				break
			}

			ctx, report := reqtrace.StartSpan(context.Background(), qreq.Method+" "+qreq.Path)
			resp := r.dispatcher.Dispatch(ctx, &qreq, listenerFD)
			resp.ApplyConnectionHeaders(keepAlive)

			werr := writeAll(fd, resp.Write())
			report(werr)

			if werr != nil {
				r.errorf("write error on fd=%d: %v", fd, werr)
				return
			}
		}
	}
}

func writeErrorAndClose(fd int, status int) {
	resp := httpmsg.Response{Status: status}
	resp.Set("Content-Type", "text/html")
	resp.ApplyConnectionHeaders(false)
	_ = writeAll(fd, resp.Write())
}

// setReadTimeout installs a SO_RCVTIMEO deadline so a blocking read
// returns EAGAIN after d with no data.
func setReadTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// readOneRequest reads from fd into *buf, growing it, until TryParse
// yields a complete request or a terminal condition is hit.
func readOneRequest(fd int, buf *[]byte, listenerFD, streamFD int) (httpmsg.Request, int, error) {
	chunk := make([]byte, initialBufSize)

	for {
		result, needMore, err := httpmsg.TryParse(*buf, false)
		if err != nil {
			return httpmsg.Request{}, 0, err
		}
		if !needMore {
			req := result.Request
			req.ListenerFD = listenerFD
			req.StreamFD = streamFD
			return req, result.Consumed, nil
		}

		n, rerr := unix.Read(fd, chunk)
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				return httpmsg.Request{}, 0, errReadTimeout
			}
			return httpmsg.Request{}, 0, rerr
		}
		if n == 0 {
			if len(*buf) == 0 {
				return httpmsg.Request{}, 0, io.EOF
			}
			_, _, perr := httpmsg.TryParse(*buf, true)
			if perr != nil {
				return httpmsg.Request{}, 0, perr
			}
			return httpmsg.Request{}, 0, io.EOF
		}

		*buf = append(*buf, chunk[:n]...)
	}
}

// writeAll loops over short writes, which unix.Write may produce under
// backpressure.
func writeAll(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				continue
			}
			return err
		}
		data = data[n:]
	}
	return nil
}
