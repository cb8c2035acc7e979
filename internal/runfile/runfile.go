// Package runfile parses the interactive run-file DSL into an executable
// script: two optional compile-time error tracks followed by an ordered list
// of dialogue actions. A Script is parsed fresh per execution and never
// mutated afterwards.
package runfile

import (
	"fmt"

	"github.com/marcohefti/simtest/internal/errpos"
)

// ActionKind discriminates the dialogue action variants.
type ActionKind int

const (
	// ActionInput writes its value to the subprocess's stdin as a line.
	ActionInput ActionKind = iota
	// ActionExpectOutput requires the next stdout line to equal its value.
	ActionExpectOutput
	// ActionExpectError requires the subprocess to fail at this point.
	ActionExpectError
)

func (k ActionKind) String() string {
	switch k {
	case ActionInput:
		return "input"
	case ActionExpectOutput:
		return "expect-output"
	case ActionExpectError:
		return "expect-error"
	}
	return fmt.Sprintf("actionkind(%d)", int(k))
}

// Action is one step of the scripted dialogue.
type Action struct {
	Kind ActionKind

	// Value is the stdin line for ActionInput and the exact expected stdout
	// line for ActionExpectOutput.
	Value string

	// Pos constrains where an expected error must occur. Nil matches any
	// position. ActionExpectError only.
	Pos *errpos.Pos

	// Text is the advisory error description. It is never compared against
	// the subprocess's actual message.
	Text string

	// SourceLine is the 1-based line in the run file, for diagnostics only.
	SourceLine int
}

// ErrorTrack is one of the two compile-time error expectations (decent and
// silly codegen). The zero value means "no compile-time error expected".
type ErrorTrack struct {
	Present bool
	Pos     *errpos.Pos
	Text    string
}

// Script is the parsed, immutable form of a run file.
type Script struct {
	// Tracks holds the decent-codegen (0) and silly-codegen (1) error tracks.
	// A file without "-----" sections leaves both zero-valued.
	Tracks  [2]ErrorTrack
	Actions []Action
}

// HasBodyError reports whether any body action expects a runtime error.
func (s *Script) HasBodyError() bool {
	for _, a := range s.Actions {
		if a.Kind == ActionExpectError {
			return true
		}
	}
	return false
}

// ParseError reports run-file text the permissive parser cannot absorb.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("run file line %d: %s", e.Line, e.Message)
	}
	return "run file: " + e.Message
}
