// Package phase models the compiler-under-test's operating modes and how the
// harness selects expectations for each of them.
package phase

import (
	"fmt"
	"strings"
)

// Phase is a distinct compiler operating mode under test.
type Phase int

const (
	Scanner Phase = iota
	CST
	SymbolTable
	AST
	Interpreter
	DecentCodegen
	SillyCodegen
)

// All lists every phase in invocation-flag order.
var All = []Phase{Scanner, CST, SymbolTable, AST, Interpreter, DecentCodegen, SillyCodegen}

var names = map[Phase]string{
	Scanner:       "scanner",
	CST:           "cst",
	SymbolTable:   "st",
	AST:           "ast",
	Interpreter:   "run",
	DecentCodegen: "decent",
	SillyCodegen:  "silly",
}

// byExtension maps a fixture phase-file extension to the phase it exercises.
// The "run" extension covers the interactive phases; which one actually runs
// is a caller decision (interpreter by default, codegen when requested).
var byExtension = map[string]Phase{
	"scanner": Scanner,
	"cst":     CST,
	"st":      SymbolTable,
	"ast":     AST,
	"run":     Interpreter,
}

func (p Phase) String() string {
	if n, ok := names[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParseName resolves a user-facing phase name (as accepted by --phase).
func ParseName(s string) (Phase, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, n := range names {
		if n == s {
			return p, true
		}
	}
	return 0, false
}

// ByExtension resolves a fixture file extension (without the dot).
func ByExtension(ext string) (Phase, bool) {
	p, ok := byExtension[strings.ToLower(ext)]
	return p, ok
}

// Args returns the compiler argv tail selecting this phase, with the sim
// file's path as the final argument.
func (p Phase) Args(simPath string) []string {
	return append(p.flagArgs(), simPath)
}

// ArgsStdin returns the argv tail for feeding the sim file over stdin.
func (p Phase) ArgsStdin() []string {
	return p.flagArgs()
}

func (p Phase) flagArgs() []string {
	switch p {
	case Scanner:
		return []string{"-s"}
	case CST:
		return []string{"-c"}
	case SymbolTable:
		return []string{"-t"}
	case AST:
		return []string{"-a"}
	case Interpreter:
		return []string{"-i"}
	case DecentCodegen:
		return []string{"-g", "decent"}
	case SillyCodegen:
		return []string{"-g", "silly"}
	}
	return nil
}

// Interactive reports whether the phase is driven through a run-file dialogue
// rather than a whole-output comparison.
func (p Phase) Interactive() bool {
	switch p {
	case Interpreter, DecentCodegen, SillyCodegen:
		return true
	}
	return false
}

// TrackIndex selects which compile-time error track is authoritative for this
// phase: 0 for decent codegen, 1 for silly codegen, -1 for every other phase
// (no compile-time error is expected there, unconditionally).
func (p Phase) TrackIndex() int {
	switch p {
	case DecentCodegen:
		return 0
	case SillyCodegen:
		return 1
	}
	return -1
}
