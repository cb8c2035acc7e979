// Package outputphase evaluates the non-interactive phases (scanner, CST,
// symbol table, AST): one whole-output comparison against a phase file, plus
// an error flag derived from its "error: " lines.
package outputphase

import (
	"os"
	"strings"

	"github.com/marcohefti/simtest/internal/driver"
)

const errorPrefix = "error: "

// Expectation is a loaded phase file: the exact stdout the compiler must
// produce, and whether it must also report at least one error. Lines starting
// with "error: " are stripped from the expected stdout and flip the flag;
// their text is advisory and never compared.
type Expectation struct {
	Stdout   string
	HasError bool
}

// Load reads a phase file from disk.
func Load(path string) (Expectation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Expectation{}, err
	}
	return Parse(string(raw)), nil
}

// Parse builds an Expectation from phase-file text.
func Parse(text string) Expectation {
	var e Expectation
	var out strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, errorPrefix) {
			e.HasError = true
			continue
		}
		out.WriteString(line)
	}
	e.Stdout = out.String()
	return e
}

// Evaluate compares one completed compiler run against the expectation.
func (e Expectation) Evaluate(c driver.Completed) driver.Result {
	if c.Stdout != e.Stdout {
		return driver.Result{
			Reason:      driver.ReasonOutputMismatch,
			ActionIndex: -1,
			Expected:    e.Stdout,
			Actual:      c.Stdout,
		}
	}
	if e.HasError {
		if !strings.HasPrefix(c.Stderr, errorPrefix) {
			return driver.Result{
				Reason:      driver.ReasonUnexpectedCompileOutcome,
				ActionIndex: -1,
				Expected:    "at least one error on stderr",
				Actual:      c.Stderr,
			}
		}
		if c.ExitCode == 0 {
			return driver.Result{
				Reason:      driver.ReasonUnexpectedCompileOutcome,
				ActionIndex: -1,
				Expected:    "non-zero exit status",
				Actual:      "exit status 0",
			}
		}
		return driver.Result{Pass: true, ActionIndex: -1}
	}
	if c.Stderr != "" {
		return driver.Result{
			Reason:      driver.ReasonUnexpectedCompileOutcome,
			ActionIndex: -1,
			Expected:    "no errors",
			Actual:      c.Stderr,
		}
	}
	if c.ExitCode != 0 {
		return driver.Result{
			Reason:      driver.ReasonPrematureTermination,
			ActionIndex: -1,
			Expected:    "exit status 0",
			Detail:      "compiler failed with no diagnostic",
		}
	}
	return driver.Result{Pass: true, ActionIndex: -1}
}
