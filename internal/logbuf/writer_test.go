package logbuf

import (
	"reflect"
	"testing"
)

func TestLineWriterSplitsLines(t *testing.T) {
	q := NewQueue(100)
	w := NewLineWriter(q)

	w.Write([]byte("first line\nsecond line\n"))

	lines := q.Drain()
	want := []string{"first line", "second line"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %v want %v", lines, want)
	}
}

func TestLineWriterCarriesPartialLines(t *testing.T) {
	q := NewQueue(100)
	w := NewLineWriter(q)

	w.Write([]byte("hel"))
	if q.Len() != 0 {
		t.Fatalf("partial line pushed early: %v", q.Drain())
	}
	w.Write([]byte("lo\nwor"))
	w.Write([]byte("ld\n"))

	lines := q.Drain()
	want := []string{"hello", "world"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %v want %v", lines, want)
	}
}

func TestLineWriterCloseFlushesTrailingPartial(t *testing.T) {
	q := NewQueue(100)
	w := NewLineWriter(q)

	w.Write([]byte("no trailing newline"))
	w.Close()

	lines := q.Drain()
	if len(lines) != 1 || lines[0] != "no trailing newline" {
		t.Errorf("expected flushed partial, got %v", lines)
	}

	// Close with nothing buffered is a no-op.
	w.Close()
	if q.Len() != 0 {
		t.Errorf("second close pushed lines: %v", q.Drain())
	}
}

func TestLineWriterStripsCarriageReturn(t *testing.T) {
	q := NewQueue(100)
	w := NewLineWriter(q)

	w.Write([]byte("windows style\r\n"))

	lines := q.Drain()
	if len(lines) != 1 || lines[0] != "windows style" {
		t.Errorf("got %v", lines)
	}
}

func TestRingRetainsLastLines(t *testing.T) {
	r := NewRing(3)
	r.Append("a", "b")
	if got := r.Lines(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}

	r.Append("c", "d")
	if got := r.Lines(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("got %v", got)
	}

	if got := r.Last(2); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("got %v", got)
	}
	if got := r.Last(10); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("got %v", got)
	}
}
