package session

import "sync"

// Queue is an unbounded FIFO of events safe for use from several
// goroutines. A UI goroutine pushes, the render loop pops everything once
// per frame.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends ev.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(q.events, ev)
}

// PopAll removes and returns every queued event in push order.
func (q *Queue) PopAll() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.events)
}
