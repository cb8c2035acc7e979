// Package report carries run outcomes upward: a JSON artifact per suite
// execution, and a human-readable rendering of each failure with the
// dialogue context that led up to it.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcohefti/simtest/internal/driver"
	"github.com/marcohefti/simtest/internal/runfile"
	"github.com/marcohefti/simtest/internal/store"
)

const schemaVersion = 1

// FixtureResult is the outcome of one fixture against one compiler spawn.
type FixtureResult struct {
	Fixture    string        `json:"fixture"`
	Phase      string        `json:"phase"`
	PhaseFile  string        `json:"phaseFile"`
	SimFile    string        `json:"simFile"`
	Cmd        string        `json:"cmd,omitempty"`
	DurationMs int64         `json:"durationMs"`
	Result     driver.Result `json:"result"`
}

// RunReport is the artifact for one whole suite execution.
type RunReport struct {
	SchemaVersion int             `json:"schemaVersion"`
	RunID         string          `json:"runId"`
	Compiler      string          `json:"compiler"`
	StartedAt     string          `json:"startedAt"`
	CompletedAt   string          `json:"completedAt"`
	Total         int             `json:"total"`
	Passed        int             `json:"passed"`
	Failed        int             `json:"failed"`
	Fixtures      []FixtureResult `json:"fixtures"`
}

// NewRunID builds a sortable run identifier: UTC timestamp plus a short
// random suffix so two runs started in the same second stay distinct.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102-150405Z") + "-" + uuid.NewString()[:8]
}

// Finalize stamps the tallies and completion time.
func (r *RunReport) Finalize(now time.Time) {
	r.SchemaVersion = schemaVersion
	r.CompletedAt = now.UTC().Format(time.RFC3339Nano)
	r.Total = len(r.Fixtures)
	r.Passed = 0
	for _, f := range r.Fixtures {
		if f.Result.Pass {
			r.Passed++
		}
	}
	r.Failed = r.Total - r.Passed
}

// Write persists the report under <outRoot>/runs/<runID>/report.json.
func Write(outRoot string, r RunReport) (string, error) {
	path := ReportPath(outRoot, r.RunID)
	if err := store.WriteJSONAtomic(path, r); err != nil {
		return "", err
	}
	return path, nil
}

func ReportPath(outRoot, runID string) string {
	return outRoot + "/runs/" + runID + "/report.json"
}

// RenderFailure writes a human-readable account of one failed fixture: the
// reason, then the replayed dialogue context with the expected and actual
// values at the point of divergence.
func RenderFailure(w io.Writer, fr FixtureResult, actions []runfile.Action) {
	fmt.Fprintf(w, "FAIL %s (%s): %s\n", fr.Fixture, fr.Phase, fr.Result.Reason)
	if fr.Cmd != "" {
		fmt.Fprintf(w, "  $ %s\n", fr.Cmd)
	}

	idx := fr.Result.ActionIndex
	if idx > 0 && idx <= len(actions) {
		fmt.Fprintln(w, "  replayed:")
		start := idx - 5
		if start < 0 {
			start = 0
		}
		for _, a := range actions[start:idx] {
			fmt.Fprintf(w, "    %s\n", actionText(a))
		}
	}
	if idx >= 0 && idx < len(actions) {
		fmt.Fprintf(w, "  at: %s (run file line %d)\n", actionText(actions[idx]), actions[idx].SourceLine)
	}
	if fr.Result.Expected != "" || fr.Result.Actual != "" {
		fmt.Fprintf(w, "  - expected: %s\n", oneLine(fr.Result.Expected))
		fmt.Fprintf(w, "  + actual:   %s\n", oneLine(fr.Result.Actual))
	}
	if fr.Result.Detail != "" {
		fmt.Fprintf(w, "  detail: %s\n", fr.Result.Detail)
	}
}

// actionText reconstructs an action's run-file notation.
func actionText(a runfile.Action) string {
	switch a.Kind {
	case runfile.ActionInput:
		return "> " + a.Value
	case runfile.ActionExpectError:
		s := "error: " + a.Text
		if a.Pos != nil {
			s += "@" + a.Pos.String()
		}
		return s
	}
	return a.Value
}

func oneLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return `""`
	}
	if strings.Contains(s, "\n") {
		return strings.ReplaceAll(s, "\n", `\n`)
	}
	return s
}
