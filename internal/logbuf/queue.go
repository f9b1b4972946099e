// Package logbuf provides bounded line buffers for child process output.
//
// A Queue is the hand-off point between the per-stream reader tasks of a
// running process (producers) and the daemon's drain loop (consumer). A
// Ring retains drained lines for display. Both bound memory by dropping
// the oldest lines first.
package logbuf

import "sync"

// DefaultCapacity bounds a process output queue to 10 000 lines.
const DefaultCapacity = 10_000

// Queue is a thread-safe FIFO of output lines with a hard capacity.
// When full, the oldest line is dropped to make room — producers never
// block. The mutex is the only synchronization point; FIFO order is
// guaranteed per producer, and interleaving between producers (stdout vs
// stderr) is approximate only.
type Queue struct {
	mu       sync.Mutex
	lines    []string
	capacity int
}

// NewQueue creates a queue holding at most capacity lines.
// A capacity <= 0 uses DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		lines:    make([]string, 0, min(capacity, 1024)),
		capacity: capacity,
	}
}

// Push appends a line, discarding the oldest line if the queue is full.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == q.capacity {
		copy(q.lines, q.lines[1:])
		q.lines = q.lines[:q.capacity-1]
	}
	q.lines = append(q.lines, line)
}

// Drain atomically removes and returns all queued lines in insertion order.
// Returns nil when the queue is empty.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return nil
	}
	drained := q.lines
	q.lines = make([]string, 0, min(q.capacity, 1024))
	return drained
}

// Len returns the number of currently queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}
