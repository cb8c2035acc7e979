package driver

import (
	"context"
	"errors"
)

// ErrClosed is returned by ReadLine/ReadErrorLine once the stream has closed
// and every buffered line was consumed: the subprocess will never produce
// more output on that stream.
var ErrClosed = errors.New("program stream closed")

// Completed is the final state of a program: whatever stdout/stderr it
// produced that the dialogue never consumed, and its exit status.
type Completed struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Failed reports whether the program's termination looks like a failure.
func (c Completed) Failed() bool {
	return c.ExitCode != 0 || c.Stderr != ""
}

// Program is a handle to a live subprocess, the spawn primitive's contract:
// write stdin lines, block for the next stdout/stderr line, and collect the
// exit state. Reads honor context deadlines; a deadline expiry leaves the
// program running (the driver decides whether to kill it).
type Program interface {
	// WriteLine writes one line (terminator appended) to the program's
	// stdin. Writes are fire-and-forget: no response is implied.
	WriteLine(line string) error

	// ReadLine blocks for the next stdout line. ErrClosed means no more
	// lines will ever arrive.
	ReadLine(ctx context.Context) (string, error)

	// ReadErrorLine blocks for the next stderr line.
	ReadErrorLine(ctx context.Context) (string, error)

	// Wait closes stdin, drains both streams into Completed, and waits for
	// the program to exit. On context expiry the program is still running
	// and must be killed by the caller.
	Wait(ctx context.Context) (Completed, error)

	// Kill forcibly terminates the program and releases its resources. Safe
	// to call at any point, including after a successful Wait.
	Kill()
}

// StartFunc spawns the compiler-under-test with stdin/stdout/stderr piped.
type StartFunc func(ctx context.Context) (Program, error)
