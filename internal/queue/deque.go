package queue

import "sync"

// Deque is the priority-aware buffer: Send appends at the back,
// SendPriority prepends at the front, Recv blocks until non-empty then
// pops the front. It never blocks a producer on capacity — callers that
// need backpressure get it from awaiting the reply sink, not from Send.
type Deque struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*QueuedRequest
	closed bool
}

// NewDeque constructs an empty Deque.
func NewDeque() *Deque {
	d := &Deque{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Send appends req at the back of the queue (normal, FIFO-relative
// priority) and wakes one waiter.
func (d *Deque) Send(req *QueuedRequest) {
	d.mu.Lock()
	d.items = append(d.items, req)
	d.mu.Unlock()
	d.cond.Signal()
}

// SendPriority prepends req at the front of the queue. Two priority sends
// issued in sequence end up LIFO relative to each other: the later call
// lands at index 0, ahead of the earlier one.
func (d *Deque) SendPriority(req *QueuedRequest) {
	d.mu.Lock()
	d.items = append([]*QueuedRequest{req}, d.items...)
	d.mu.Unlock()
	d.cond.Signal()
}

// Recv blocks until the queue is non-empty (or Close is called), then pops
// and returns the front item. The second return is false only after Close
// and the queue has drained — the canonical "lock, try pop, if empty
// release and await, repeat" pattern.
func (d *Deque) Recv() (*QueuedRequest, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.items) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.items) == 0 {
		return nil, false
	}

	req := d.items[0]
	d.items = d.items[1:]
	return req, true
}

// Close unblocks any waiting Recv with no more items to deliver. Intended
// for orderly shutdown; the worker loop exits when Recv returns false.
func (d *Deque) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cond.Broadcast()
}

// Len reports the current queue depth. For diagnostics only.
func (d *Deque) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
