package reactor

import (
	"github.com/jacobsa/syncutil"

	"github.com/aksel-webserv/webserv/internal/httpmsg"
)

// queueCapacity is the bounded FIFO depth per connection.
const queueCapacity = 100

// requestQueue is the bounded per-connection FIFO. It exists to
// preserve arrival order under a future pipelined-read implementation;
// the current synchronous dispatch rarely fills it.
type requestQueue struct {
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	items []httpmsg.Request
}

func newRequestQueue() *requestQueue {
	q := &requestQueue{}
	q.mu = syncutil.NewInvariantMutex(q.checkInvariants)
	return q
}

// checkInvariants enforces the queueCapacity bound documented on
// requestQueue; push is the only writer and already refuses to exceed
// queueCapacity, so a violation here means a bug in this file.
func (q *requestQueue) checkInvariants() {
	if len(q.items) > queueCapacity {
		panic("requestQueue: len(items) exceeds queueCapacity")
	}
}

// push appends req, reporting false if the queue is already at
// capacity (surfaced by the caller as a 503).
func (q *requestQueue) push(req httpmsg.Request) (ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= queueCapacity {
		return false
	}
	q.items = append(q.items, req)
	return true
}

// pop removes and returns the front of the queue, or (zero, false) if
// empty.
func (q *requestQueue) pop() (httpmsg.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return httpmsg.Request{}, false
	}
	req := q.items[0]
	q.items = q.items[1:]
	return req, true
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
