package logbuf

import (
	"bytes"
	"strings"
	"sync"
)

// LineWriter is an io.WriteCloser that splits its input on newlines and
// pushes each completed line onto a Queue. It is the stdout or stderr sink
// for a child process: one LineWriter per stream, so a partial line on one
// stream never garbles the other.
type LineWriter struct {
	mu sync.Mutex
	q  *Queue
	// partial holds an incomplete line (no trailing newline yet)
	partial bytes.Buffer
}

// NewLineWriter creates a writer feeding completed lines into q.
func NewLineWriter(q *Queue) *LineWriter {
	return &LineWriter{q: q}
}

// Write implements io.Writer.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial.Write(p)

	for {
		line, err := w.partial.ReadString('\n')
		if err != nil {
			// No more complete lines — put the partial back
			w.partial.Reset()
			w.partial.WriteString(line)
			break
		}
		w.q.Push(strings.TrimRight(line, "\r\n"))
	}

	return len(p), nil
}

// Close flushes any trailing partial line. Called when the stream ends so
// final output without a newline is not lost.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.partial.Len() > 0 {
		w.q.Push(w.partial.String())
		w.partial.Reset()
	}
	return nil
}
