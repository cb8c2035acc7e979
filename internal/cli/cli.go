// Package cli implements the simtest command-line surface. Exit codes are
// part of the contract: 0 all passed, 1 conformance failures, 2 usage or
// environment errors (reported with stable SIMTEST_E_* codes).
package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

// CliError is a user-facing error with a stable code.
type CliError struct {
	Code    string
	Message string
}

func (e *CliError) Error() string { return e.Message }

// Runner holds the injectable surfaces so commands are testable end to end.
type Runner struct {
	Version string
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run dispatches a full argv (without the program name) and returns the
// process exit code.
func (r Runner) Run(args []string) int {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Now == nil {
		r.Now = time.Now
	}

	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printRootHelp(r.Stdout)
		return 0
	}

	switch args[0] {
	case "run":
		return r.runRun(args[1:])
	case "list":
		return r.runList(args[1:])
	case "doctor":
		return r.runDoctor(args[1:])
	case "version":
		fmt.Fprintf(r.Stdout, "%s\n", r.Version)
		return 0
	default:
		fmt.Fprintf(r.Stderr, "SIMTEST_E_USAGE: unknown command %q\n", args[0])
		printRootHelp(r.Stderr)
		return 2
	}
}

func (r Runner) failUsage(msg string) int {
	fmt.Fprintf(r.Stderr, "SIMTEST_E_USAGE: %s\n", msg)
	return 2
}

func (r Runner) failEnv(code string, err error) int {
	fmt.Fprintf(r.Stderr, "%s: %v\n", code, err)
	return 2
}

func printRootHelp(w io.Writer) {
	fmt.Fprint(w, `simtest - conformance harness for a simple compiler

Usage:
  simtest run     run fixtures against a compiler-under-test
  simtest list    list discovered fixtures
  simtest doctor  check the compiler binary and fixtures tree
  simtest version print the harness version

Run "simtest <command> --help" for command flags.
`)
}
