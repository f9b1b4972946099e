package logbuf

import (
	"fmt"
	"sync"
	"testing"
)

func TestQueuePushAndDrain(t *testing.T) {
	q := NewQueue(10)
	q.Push("one")
	q.Push("two")
	q.Push("three")

	if q.Len() != 3 {
		t.Fatalf("expected 3 queued lines, got %d", q.Len())
	}

	lines := q.Drain()
	if len(lines) != 3 {
		t.Fatalf("expected 3 drained lines, got %d", len(lines))
	}
	if lines[0] != "one" || lines[1] != "two" || lines[2] != "three" {
		t.Errorf("drain out of order: %v", lines)
	}

	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
	if q.Drain() != nil {
		t.Error("expected nil drain on empty queue")
	}
}

func TestQueueDropsOldestAtCapacity(t *testing.T) {
	const capacity = 100
	q := NewQueue(capacity)

	for i := 0; i < capacity*3; i++ {
		q.Push(fmt.Sprintf("line-%d", i))
	}

	if q.Len() != capacity {
		t.Fatalf("expected length pinned at %d, got %d", capacity, q.Len())
	}

	lines := q.Drain()
	if len(lines) != capacity {
		t.Fatalf("expected %d drained lines, got %d", capacity, len(lines))
	}
	// The retained entries are the most recent `capacity` pushes, in order.
	for i, line := range lines {
		want := fmt.Sprintf("line-%d", capacity*2+i)
		if line != want {
			t.Fatalf("line %d: got %q want %q", i, line, want)
		}
	}
}

func TestQueueDefaultCapacity(t *testing.T) {
	q := NewQueue(0)
	for i := 0; i < DefaultCapacity+500; i++ {
		q.Push("x")
	}
	if q.Len() != DefaultCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCapacity, q.Len())
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue(1000)

	var wg sync.WaitGroup
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q.Push(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	lines := q.Drain()
	if len(lines) != 1000 {
		t.Fatalf("expected 1000 lines, got %d", len(lines))
	}

	// FIFO must hold within each producer's own pushes.
	next := map[string]int{"p0": 0, "p1": 0}
	for _, line := range lines {
		var p, i int
		if _, err := fmt.Sscanf(line, "p%d-%d", &p, &i); err != nil {
			t.Fatalf("unexpected line %q", line)
		}
		key := fmt.Sprintf("p%d", p)
		if i != next[key] {
			t.Fatalf("producer %s out of order: got %d want %d", key, i, next[key])
		}
		next[key]++
	}
}
