package logbuf

import "sync"

// Ring retains the last N lines drained from a Queue so they can be served
// to log viewers after the queue has been consumed. Unlike Queue, reading
// a Ring does not remove anything.
type Ring struct {
	mu    sync.Mutex
	lines []string
	size  int
	pos   int
	full  bool
}

// NewRing creates a ring buffer retaining the last n lines.
func NewRing(n int) *Ring {
	if n <= 0 {
		n = 1000
	}
	return &Ring{
		lines: make([]string, n),
		size:  n,
	}
}

// Append stores lines in order, overwriting the oldest when full.
func (r *Ring) Append(lines ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		r.lines[r.pos] = line
		r.pos = (r.pos + 1) % r.size
		if r.pos == 0 {
			r.full = true
		}
	}
}

// Lines returns all retained lines in order, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		result := make([]string, r.pos)
		copy(result, r.lines[:r.pos])
		return result
	}

	result := make([]string, r.size)
	copy(result, r.lines[r.pos:])
	copy(result[r.size-r.pos:], r.lines[:r.pos])
	return result
}

// Last returns the last n retained lines. If fewer lines exist, returns
// all of them.
func (r *Ring) Last(n int) []string {
	all := r.Lines()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
