// Package interrupt turns Ctrl+C into a graceful stop for long pipeline runs.
//
// The first interrupt only requests a stop: the current stage finishes and
// the run ends at the next stage boundary. The second cancels the context so
// in-flight work aborts. A third exits the process immediately.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

const (
	stopMessage  = "\nStopping after the current stage... (press Ctrl+C again to abort)"
	abortMessage = "\nAborting..."
	exitMessage  = "\nAborted."
)

// Level is how far the user escalated.
type Level int

const (
	// None means no interrupt was received.
	None Level = iota
	// StopRequested means finish the current stage, then stop.
	StopRequested
	// Aborted means in-flight work was cancelled.
	Aborted
)

// String returns the string representation of the Level.
func (l Level) String() string {
	switch l {
	case None:
		return "None"
	case StopRequested:
		return "StopRequested"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// Handler escalates on each SIGINT/SIGTERM.
type Handler struct {
	mu         sync.Mutex
	count      int
	stopped    bool
	cancelFunc context.CancelFunc
	done       chan struct{} // Signals listen goroutine to exit

	// Injected dependencies (for testing)
	exitFunc func(int)
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	// Stderr is the writer for user-facing messages.
	// Must be safe for concurrent writes from multiple goroutines.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// Returns the handler and a context that is canceled on the second interrupt.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, 3)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return newHandler(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	return newHandler(parent, opts)
}

func newHandler(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	exitFunc := opts.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   exitFunc,
		stderr:     stderr,
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}

	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}

			h.mu.Lock()
			if h.stopped {
				h.mu.Unlock()
				return
			}
			h.count++
			n := h.count
			if n == 2 {
				h.cancelFunc()
			}
			h.mu.Unlock()

			switch n {
			case 1:
				fmt.Fprintln(h.stderr, stopMessage)
			case 2:
				fmt.Fprintln(h.stderr, abortMessage)
			default:
				fmt.Fprintln(h.stderr, exitMessage)
				h.exitFunc(ExitInterrupt)
				return // In case exitFunc doesn't actually exit (tests)
			}
		}
	}
}

// Level reports how many interrupts were received, capped at Aborted.
func (h *Handler) Level() Level {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Level(min(h.count, int(Aborted)))
}

// StopRequested reports whether the run should end at the next stage
// boundary. It matches the pipeline's stop-check signature.
func (h *Handler) StopRequested() bool {
	return h.Level() >= StopRequested
}

// WasInterrupted returns true if at least one interrupt was received.
func (h *Handler) WasInterrupted() bool {
	return h.Level() != None
}

// Stop cleans up the handler. Should be called when done.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
}
