package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Sink receives a signal each time one unit of work (one remote command) has completed. Implementations must not
// fail: whatever goes wrong while reporting progress stays inside the sink.
type Sink interface {
	Advance()
}

// Nop is a Sink that reports nothing.
type Nop struct{}

func (Nop) Advance() {}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func()

func (f SinkFunc) Advance() {
	if f != nil {
		f()
	}
}

// Counter is a Sink that renders "[n/total] description: step" to a writer. If the writer is a terminal the line is
// redrawn in place, otherwise every step is printed on its own line.
type Counter struct {
	out         io.Writer
	description string
	steps       []string
	interactive bool

	mu        sync.Mutex
	completed int
}

// NewCounter creates a counter for the given steps. The step at index n is shown once the n+1-th Advance call
// has been received.
func NewCounter(out io.Writer, description string, steps []string) *Counter {
	return &Counter{
		out:         out,
		description: description,
		steps:       steps,
		interactive: isTerminal(out),
	}
}

func (c *Counter) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.completed++
	step := ""
	if c.completed <= len(c.steps) {
		step = c.steps[c.completed-1]
	}

	line := fmt.Sprintf("[%d/%d] %s", c.completed, len(c.steps), c.description)
	if step != "" {
		line += ": " + step
	}

	// Write errors are swallowed on purpose, progress output never aborts a batch.
	if !c.interactive {
		_, _ = fmt.Fprintln(c.out, line)
		return
	}
	_, _ = fmt.Fprintf(c.out, "\r\033[K%s", line)
	if c.completed >= len(c.steps) {
		_, _ = fmt.Fprintln(c.out)
	}
}

// Completed returns the number of Advance calls received so far.
func (c *Counter) Completed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
