package engine

import (
	"sync"

	"github.com/roach88/countbot/internal/game"
)

// ticketKind distinguishes between the work items the run loop processes.
type ticketKind int

const (
	// ticketSubmission carries an evaluated submission.
	ticketSubmission ticketKind = iota + 1
	// ticketControl carries a configuration swap.
	ticketControl
)

// ticketStatus tracks a ticket from reservation to dequeue.
type ticketStatus int

const (
	ticketPending ticketStatus = iota
	ticketReady
	ticketDiscarded
)

// ticket is one slot in arrival order.
//
// A submission ticket is reserved when the submission arrives and filled
// once its evaluation finishes. The run loop never looks past an unfilled
// head, so transitions happen in arrival order even when evaluations
// finish out of order.
type ticket struct {
	kind   ticketKind
	status ticketStatus

	submission Submission
	input      game.Input
	control    *control

	// reply receives exactly one result (buffered, size 1).
	reply chan result
}

// control is a configuration swap applied between transitions.
type control struct {
	table  *game.Table
	policy game.Policy
}

type result struct {
	outcome *game.Outcome
	err     error
}

// admissionQueue is a thread-safe FIFO of tickets.
//
// Submitters reserve, fill and discard tickets from any goroutine. The
// engine's Run loop is the only consumer. It signals through a buffered
// channel so the Run loop can wait on it alongside ctx.Done().
type admissionQueue struct {
	mu      sync.Mutex
	tickets []*ticket
	closed  bool
	signal  chan struct{} // Signals a head may be ready (buffered, size 1)
}

func newAdmissionQueue() *admissionQueue {
	return &admissionQueue{
		tickets: make([]*ticket, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Reserve appends a pending ticket. Returns false if the queue is closed.
func (q *admissionQueue) Reserve(kind ticketKind) (*ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, false
	}
	t := &ticket{kind: kind, reply: make(chan result, 1)}
	q.tickets = append(q.tickets, t)
	return t, true
}

// Fill marks t ready with the given input. Returns false if the queue was
// closed in the meantime; t has then already been failed by Close's caller.
func (q *admissionQueue) Fill(t *ticket, in game.Input) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	t.input = in
	t.status = ticketReady
	q.notify()
	return true
}

// Push appends a ticket that is ready immediately.
func (q *admissionQueue) Push(kind ticketKind, c *control) (*ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, false
	}
	t := &ticket{kind: kind, status: ticketReady, control: c, reply: make(chan result, 1)}
	q.tickets = append(q.tickets, t)
	q.notify()
	return t, true
}

// Discard gives up t's slot without producing a transition.
func (q *admissionQueue) Discard(t *ticket) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || t.status != ticketPending {
		return
	}
	t.status = ticketDiscarded
	q.notify()
}

// TryDequeue pops the head ticket if it is ready, skipping discarded heads.
// Returns (nil, false) if the queue is empty or the head is still pending.
func (q *admissionQueue) TryDequeue() (*ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tickets) > 0 {
		head := q.tickets[0]
		switch head.status {
		case ticketPending:
			return nil, false
		case ticketDiscarded:
			q.pop()
		case ticketReady:
			q.pop()
			return head, true
		}
	}
	return nil, false
}

// pop removes the head. Caller holds mu.
func (q *admissionQueue) pop() {
	// Nil out the slot so the backing array does not retain the ticket.
	q.tickets[0] = nil
	if len(q.tickets) == 1 {
		q.tickets = q.tickets[:0]
	} else {
		q.tickets = q.tickets[1:]
	}
}

// notify signals without blocking; the buffer of 1 coalesces signals.
// Caller holds mu.
func (q *admissionQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Wait returns a channel that signals when the head may have become ready.
// The channel is closed when the queue closes.
func (q *admissionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of tickets not yet dequeued, including pending
// and discarded ones.
func (q *admissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tickets)
}

// Close stops admission and returns the tickets that were still queued so
// the caller can fail them. Returns nil if the queue was already closed.
func (q *admissionQueue) Close() []*ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.signal)

	remaining := q.tickets
	q.tickets = nil
	return remaining
}
