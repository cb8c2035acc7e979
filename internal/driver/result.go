package driver

// Reason classifies the first point of divergence between the script and the
// subprocess's observed behavior. Reasons are stable codes: reporters key on
// them, so renaming one is a breaking change.
type Reason string

const (
	// ReasonParseError marks run-file text that permissiveness could not
	// absorb. It fails before any subprocess is spawned.
	ReasonParseError Reason = "PARSE_ERROR"
	// ReasonUnexpectedCompileOutcome marks a compile-time result (error vs
	// success, or error position) that contradicts the active error track.
	ReasonUnexpectedCompileOutcome Reason = "UNEXPECTED_COMPILE_OUTCOME"
	// ReasonOutputMismatch marks a produced stdout line differing from an
	// ExpectOutput action, including stray output past the end of the script.
	ReasonOutputMismatch Reason = "OUTPUT_MISMATCH"
	// ReasonPrematureTermination marks a stream closing or the process
	// exiting before an expectation was satisfied.
	ReasonPrematureTermination Reason = "PREMATURE_TERMINATION"
	// ReasonUnmatchedErrorPosition marks an expected error reported at the
	// wrong (line, col).
	ReasonUnmatchedErrorPosition Reason = "UNMATCHED_ERROR_POSITION"
	// ReasonTimeout marks a bounded wait expiring with no output.
	ReasonTimeout Reason = "TIMEOUT"
)

// Result is the outcome of executing one script against one subprocess. All
// failures resolve into a Result value; the driver never escapes to its
// caller through panics or sentinel errors once the subprocess is running.
type Result struct {
	Pass   bool   `json:"pass"`
	Reason Reason `json:"reason,omitempty"`

	// ActionIndex locates the divergence in the script's action list. It is
	// -1 for compile-stage failures and len(actions) for end-of-script
	// checks (exit status, stray output).
	ActionIndex int `json:"actionIndex"`

	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ParseFailure wraps a run-file parse error into the result taxonomy. It is
// the one failure that happens before any subprocess exists.
func ParseFailure(err error) Result {
	res := fail(ReasonParseError, -1)
	res.Detail = err.Error()
	return res
}

func pass() Result {
	return Result{Pass: true, ActionIndex: -1}
}

func fail(reason Reason, index int) Result {
	return Result{Reason: reason, ActionIndex: index}
}
