// Package driver replays a parsed run-file script against one live
// subprocess, turn by turn, and resolves the outcome into a Result value.
// The compiler-under-test is a stateful program, so the dialogue's declared
// order is load-bearing: the driver never reorders or batches actions, and it
// terminates the subprocess on every exit path.
package driver

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcohefti/simtest/internal/errpos"
	"github.com/marcohefti/simtest/internal/phase"
	"github.com/marcohefti/simtest/internal/runfile"
)

// DefaultTimeout bounds each blocking turn (a line read, or the final wait),
// matching the original harness's per-operation budget.
const DefaultTimeout = 5 * time.Second

// Options configure one script execution.
type Options struct {
	Phase   phase.Phase
	Timeout time.Duration // per-turn bound; DefaultTimeout when zero
	Logger  *zap.Logger
}

// Run spawns the subprocess via start and drives it through the script. The
// returned error covers only failures to spawn; every divergence between
// script and subprocess resolves into the Result.
func Run(ctx context.Context, script *runfile.Script, start StartFunc, opts Options) (Result, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	prog, err := start(ctx)
	if err != nil {
		return Result{}, err
	}
	defer prog.Kill()

	r := run{prog: prog, script: script, opts: opts, log: opts.Logger}
	return r.drive(ctx), nil
}

type run struct {
	prog   Program
	script *runfile.Script
	opts   Options
	log    *zap.Logger
}

func (r *run) drive(ctx context.Context) Result {
	if ti := r.opts.Phase.TrackIndex(); ti >= 0 {
		track := r.script.Tracks[ti]
		if track.Present {
			return r.awaitCompileError(ctx, track)
		}
		// Track empty: compilation must succeed. Success has no positive
		// signal of its own; a compile failure surfaces during the replay
		// as a dead stream and is reconciled there.
	}
	return r.replay(ctx)
}

// awaitCompileError handles the AwaitingCompileResult state when the active
// track expects a failure: the subprocess must report a diagnostic whose
// position (if the track pins one) matches, then exit non-zero.
func (r *run) awaitCompileError(ctx context.Context, track runfile.ErrorTrack) Result {
	line, err := r.readErrorLine(ctx)
	switch {
	case errors.Is(err, ErrClosed):
		completed, werr := r.wait(ctx)
		if werr != nil {
			return r.failTimeout(-1, "compiler produced no diagnostic and did not exit")
		}
		if completed.ExitCode != 0 && track.Pos == nil {
			// Failing silently still counts when no position is pinned.
			return pass()
		}
		res := fail(ReasonUnexpectedCompileOutcome, -1)
		res.Expected = "compile-time error"
		res.Detail = "compilation succeeded"
		if completed.ExitCode != 0 {
			res.Detail = "compiler failed without a diagnostic to locate"
		}
		return res
	case err != nil:
		res := fail(ReasonUnexpectedCompileOutcome, -1)
		res.Expected = "compile-time error"
		res.Detail = "no compile-time diagnostic before timeout"
		return res
	}

	r.log.Debug("compile diagnostic", zap.String("line", line))
	if actual := errpos.FromDiagnostic(line); !errpos.Matches(track.Pos, actual) {
		res := fail(ReasonUnmatchedErrorPosition, -1)
		res.Expected = track.Pos.String()
		res.Actual = line
		return res
	}

	completed, err := r.wait(ctx)
	if err != nil {
		return r.failTimeout(-1, "compiler did not exit after reporting an error")
	}
	if completed.ExitCode == 0 {
		res := fail(ReasonUnexpectedCompileOutcome, -1)
		res.Expected = "non-zero exit status"
		res.Actual = "exit status 0"
		return res
	}
	return pass()
}

// replay consumes the script's actions strictly in order (the Replaying
// state), then performs the end-of-script checks.
func (r *run) replay(ctx context.Context) Result {
	for i, a := range r.script.Actions {
		r.log.Debug("action", zap.Int("index", i), zap.Stringer("kind", a.Kind), zap.String("value", a.Value))
		switch a.Kind {
		case runfile.ActionInput:
			if err := r.prog.WriteLine(a.Value); err != nil {
				return r.reconcileDeadStream(ctx, i)
			}
		case runfile.ActionExpectOutput:
			line, err := r.readLine(ctx)
			switch {
			case errors.Is(err, ErrClosed):
				return r.reconcileDeadStream(ctx, i)
			case err != nil:
				return r.failTimeout(i, "no output line within the bounded wait")
			case line != a.Value:
				res := fail(ReasonOutputMismatch, i)
				res.Expected = a.Value
				res.Actual = line
				return res
			}
		case runfile.ActionExpectError:
			// Any actions past this point are unreachable: the run is
			// expected to terminate here.
			return r.expectError(ctx, i, a)
		}
	}
	return r.finishClean(ctx)
}

// expectError handles an ExpectError action: the subprocess must fail here,
// either by writing a diagnostic to stderr or by exiting non-zero.
func (r *run) expectError(ctx context.Context, i int, a runfile.Action) Result {
	line, err := r.readErrorLine(ctx)
	switch {
	case errors.Is(err, ErrClosed):
		completed, werr := r.wait(ctx)
		if werr != nil {
			return r.failTimeout(i, "no error line and the program did not exit")
		}
		if completed.ExitCode == 0 {
			res := fail(ReasonPrematureTermination, i)
			res.Expected = "error"
			res.Detail = "program exited 0 where an error was expected"
			return res
		}
		if a.Pos != nil {
			// A pinned position needs a diagnostic line to check against.
			res := fail(ReasonUnmatchedErrorPosition, i)
			res.Expected = a.Pos.String()
			res.Detail = "program failed without a diagnostic to locate"
			return res
		}
		return r.checkStrayOutput(completed, i)
	case err != nil:
		return r.failTimeout(i, "no error line within the bounded wait")
	}

	r.log.Debug("error line", zap.Int("index", i), zap.String("line", line))
	if actual := errpos.FromDiagnostic(line); !errpos.Matches(a.Pos, actual) {
		res := fail(ReasonUnmatchedErrorPosition, i)
		res.Expected = a.Pos.String()
		res.Actual = line
		return res
	}

	// The program may exit on its own or keep running; still being alive
	// after a matched error is not a failure, the driver just tears it down.
	waitCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	completed, werr := r.prog.Wait(waitCtx)
	if werr != nil {
		r.prog.Kill()
		return pass()
	}
	if completed.ExitCode == 0 {
		res := fail(ReasonPrematureTermination, i)
		res.Expected = "non-zero exit status"
		res.Actual = "exit status 0"
		return res
	}
	return r.checkStrayOutput(completed, i)
}

// finishClean handles a script with no ExpectError: the subprocess must exit
// 0 with nothing left on either stream.
func (r *run) finishClean(ctx context.Context) Result {
	end := len(r.script.Actions)
	completed, err := r.wait(ctx)
	if err != nil {
		return r.failTimeout(end, "program did not exit at end of script")
	}
	if res := r.checkStrayOutput(completed, end); !res.Pass {
		return res
	}
	if line := firstLine(completed.Stderr); line != "" {
		if completed.ExitCode != 0 {
			res := fail(ReasonUnexpectedCompileOutcome, end)
			res.Expected = "clean compile and run"
			res.Actual = line
			return res
		}
		res := fail(ReasonOutputMismatch, end)
		res.Expected = ""
		res.Actual = line
		res.Detail = "unexpected stderr output"
		return res
	}
	if completed.ExitCode != 0 {
		res := fail(ReasonPrematureTermination, end)
		res.Expected = "exit status 0"
		res.Detail = "program failed with no diagnostic"
		return res
	}
	return pass()
}

// reconcileDeadStream classifies a stream that closed mid-replay. A
// diagnostic plus a non-zero exit is a compile failure that no track
// expected; anything else is plain premature termination.
func (r *run) reconcileDeadStream(ctx context.Context, i int) Result {
	completed, err := r.wait(ctx)
	if err != nil {
		return r.failTimeout(i, "output closed but the program did not exit")
	}
	if line := firstLine(completed.Stderr); line != "" && completed.ExitCode != 0 {
		res := fail(ReasonUnexpectedCompileOutcome, i)
		res.Expected = "clean compile and run"
		res.Actual = line
		return res
	}
	res := fail(ReasonPrematureTermination, i)
	res.Detail = "no more output before the expectation was satisfied"
	return res
}

// checkStrayOutput fails on stdout the script never asked for.
func (r *run) checkStrayOutput(completed Completed, i int) Result {
	if line := firstLine(completed.Stdout); line != "" {
		res := fail(ReasonOutputMismatch, i)
		res.Expected = ""
		res.Actual = line
		res.Detail = "unconsumed stdout after the script's last expectation"
		return res
	}
	return pass()
}

func (r *run) readLine(ctx context.Context) (string, error) {
	turnCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	return r.prog.ReadLine(turnCtx)
}

func (r *run) readErrorLine(ctx context.Context) (string, error) {
	turnCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	return r.prog.ReadErrorLine(turnCtx)
}

func (r *run) wait(ctx context.Context) (Completed, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	return r.prog.Wait(waitCtx)
}

func (r *run) failTimeout(i int, detail string) Result {
	res := fail(ReasonTimeout, i)
	res.Detail = detail
	return res
}

func firstLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
