package event

import (
	"iter"
	"sync"

	"go.abhg.dev/container/ring"
)

// Sink receives events as a sync run progresses.
type Sink interface {
	Emit(Event)
}

// Chan is a bounded, back-pressuring Sink. Once capacity unconsumed
// events are queued, Emit blocks until a consumer drains one through
// All. This gives the Branch Sync Orchestrator (spec.md §5) the
// cooperative flow control it needs: a caller that stops draining the
// stream eventually stalls the orchestrator's own goroutine rather than
// letting the queue grow without bound.
//
// ring.Q, the teacher's queue of choice (go.abhg.dev/container/ring,
// used in abhinav-git-spice/internal/spice/branch_graph.go), exposes
// only Push/Pop/Empty, so capacity tracking here is a manually
// maintained counter guarded by the same mutex as the queue itself.
type Chan struct {
	mu       sync.Mutex
	readable sync.Cond
	writable sync.Cond
	queue    ring.Q[Event]
	size     int
	capacity int
	closed   bool
}

// NewChan builds a Chan that holds at most capacity unconsumed events
// before Emit starts blocking.
func NewChan(capacity int) *Chan {
	c := &Chan{capacity: capacity}
	c.readable.L = &c.mu
	c.writable.L = &c.mu
	return c
}

// Emit queues e, blocking while the Chan is already at capacity. Once
// the Chan is closed, Emit returns immediately without queuing.
func (c *Chan) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.size >= c.capacity && !c.closed {
		c.writable.Wait()
	}
	if c.closed {
		return
	}

	c.queue.Push(e)
	c.size++
	c.readable.Signal()
}

// Next blocks until an event is available or the Chan is closed and
// fully drained, in which case it returns ok == false.
func (c *Chan) Next() (e Event, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.size == 0 && !c.closed {
		c.readable.Wait()
	}
	if c.size == 0 {
		return nil, false
	}

	e = c.queue.Pop()
	c.size--
	c.writable.Signal()
	return e, true
}

// Close marks the Chan closed. Blocked Emit calls return without
// queuing; blocked Next calls drain whatever remains queued and then
// return false. Close is idempotent.
func (c *Chan) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.readable.Broadcast()
	c.writable.Broadcast()
}

// All iterates the events emitted on c, stopping once c is closed and
// drained.
func (c *Chan) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for {
			e, ok := c.Next()
			if !ok {
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}
