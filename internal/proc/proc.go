// Package proc spawns and supervises the managed child processes.
//
// Each process's stdout and stderr stream independently into a shared
// logbuf.Queue: os/exec pumps each pipe on its own goroutine into a
// dedicated LineWriter, so neither stream can block the other and the
// reader tasks end silently when their pipe closes.
package proc

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/benaskins/vigil/internal/logbuf"
)

const (
	// termGrace is how long Terminate waits after SIGTERM before
	// escalating to SIGKILL.
	termGrace = 10 * time.Second

	// termPollInterval is the liveness polling cadence during the grace
	// window.
	termPollInterval = 200 * time.Millisecond
)

// Handle owns one running child process. It is created by Start and
// remains valid after the process exits; Terminate on an exited handle is
// a no-op.
type Handle struct {
	cmd  *exec.Cmd
	done chan struct{}

	// grace overrides termGrace; tests shorten it.
	grace time.Duration

	mu       sync.Mutex
	exitCode int
	exitErr  string
}

// Start launches binary with args, streaming both output pipes into queue.
// It fails if the binary does not exist or the process cannot be created.
// Before spawning, the exact command line is pushed to the queue as a
// `$ `-prefixed diagnostic line.
func Start(binary string, args []string, queue *logbuf.Queue) (*Handle, error) {
	if _, err := os.Stat(binary); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("executable not found at %s", binary)
		}
		return nil, fmt.Errorf("stat %s: %w", binary, err)
	}

	queue.Push("$ " + binary + " " + strings.Join(args, " "))

	cmd := exec.Command(binary, args...)

	stdout := logbuf.NewLineWriter(queue)
	stderr := logbuf.NewLineWriter(queue)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Own process group so signals reach the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", binary, err)
	}

	h := &Handle{
		cmd:   cmd,
		done:  make(chan struct{}),
		grace: termGrace,
	}

	go func() {
		err := cmd.Wait()
		stdout.Close()
		stderr.Close()

		h.mu.Lock()
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				h.exitCode = exitErr.ExitCode()
			}
			h.exitErr = err.Error()
		}
		h.mu.Unlock()
		close(h.done)
	}()

	return h, nil
}

// Running reports whether the process is still alive. Non-blocking; the
// background Wait goroutine reaps the process exactly once.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// PID returns the OS process ID.
func (h *Handle) PID() int {
	return h.cmd.Process.Pid
}

// ExitState returns the recorded exit code and error text. Only meaningful
// once Running reports false.
func (h *Handle) ExitState() (int, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, h.exitErr
}

// Terminate performs the staged shutdown: SIGTERM, poll liveness every
// 200 ms for the grace window, then SIGKILL and wait for the reap. It
// always returns with the process gone and has no failure path.
func (h *Handle) Terminate() {
	if !h.Running() {
		return
	}

	pid := h.cmd.Process.Pid
	_ = unix.Kill(-pid, unix.SIGTERM)

	deadline := time.Now().Add(h.grace)
	for time.Now().Before(deadline) {
		select {
		case <-h.done:
			return
		case <-time.After(termPollInterval):
		}
	}

	h.Kill()
}

// Kill sends SIGKILL and blocks until the process is reaped. Safe on an
// already-exited handle.
func (h *Handle) Kill() {
	if h.Running() {
		pid := h.cmd.Process.Pid
		_ = unix.Kill(-pid, unix.SIGKILL)
	}
	<-h.done
}

// Wait blocks until the process exits.
func (h *Handle) Wait() {
	<-h.done
}
