//go:build !windows

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marcohefti/simtest/internal/report"
)

const fakeCompiler = `#!/bin/sh
if [ "$1" = "-s" ]; then
  cat "$2"
  exit 0
fi
while IFS= read -r line; do printf '%s\n' "$line"; done
exit 0
`

// writeProject lays out a self-contained harness project: config, compiler
// and a fixtures tree with one scanner and one dialogue fixture.
func writeProject(t *testing.T, runFile string) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "simc"), []byte(fakeCompiler), 0o755); err != nil {
		t.Fatalf("write compiler: %v", err)
	}
	configPath = filepath.Join(dir, "simtest.yaml")
	config := "compiler: ./simc\nfixtures: ./fixtures\noutRoot: ./.simtest\ntimeoutMs: 5000\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fixtures := filepath.Join(dir, "fixtures")
	if err := os.MkdirAll(fixtures, 0o755); err != nil {
		t.Fatalf("mkdir fixtures: %v", err)
	}
	files := map[string]string{
		"a.sim":     "begin end\n",
		"a.scanner": "begin end\n",
		"a.run":     runFile,
	}
	for rel, body := range files {
		if err := os.WriteFile(filepath.Join(fixtures, rel), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir, configPath
}

func newRunner(stdout, stderr *bytes.Buffer) Runner {
	return Runner{
		Version: "0.0.0-dev",
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		Stdout:  stdout,
		Stderr:  stderr,
	}
}

func TestRun_AllFixturesPass(t *testing.T) {
	dir, configPath := writeProject(t, "> 10\n10\n> 7\n7\n")

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"run", "--config", configPath})
	if code != 0 {
		t.Fatalf("exit code %d (stderr=%q)", code, stderr.String())
	}
	out := stdout.String()
	// The .run fixture fans out to interpreter plus both codegen phases.
	for _, want := range []string{"ok   a (run)", "ok   a (decent)", "ok   a (silly)", "ok   a (scanner)", "4 passed, 0 failed (4 total)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	runs, err := filepath.Glob(filepath.Join(dir, ".simtest", "runs", "*", "report.json"))
	if err != nil || len(runs) != 1 {
		t.Fatalf("report artifact: %v, %v", runs, err)
	}
}

func TestRun_FailureRenderedAndExitOne(t *testing.T) {
	_, configPath := writeProject(t, "> 10\n11\n")

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"run", "--config", configPath})
	if code != 1 {
		t.Fatalf("exit code %d (stderr=%q)", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "FAIL a (run): OUTPUT_MISMATCH") {
		t.Fatalf("failure not rendered:\n%s", out)
	}
	if !strings.Contains(out, "- expected: 11") || !strings.Contains(out, "+ actual:   10") {
		t.Fatalf("divergence not rendered:\n%s", out)
	}
}

func TestRun_JSONReport(t *testing.T) {
	_, configPath := writeProject(t, "> 10\n10\n")

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"run", "--config", configPath, "--json"})
	if code != 0 {
		t.Fatalf("exit code %d (stderr=%q)", code, stderr.String())
	}

	var rep report.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, stdout.String())
	}
	if rep.Total != 4 || rep.Passed != 4 || rep.SchemaVersion != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if !strings.HasPrefix(rep.RunID, "20260301-120000Z-") {
		t.Fatalf("run id not derived from injected clock: %q", rep.RunID)
	}
}

func TestRun_PhaseAndFixtureFilters(t *testing.T) {
	_, configPath := writeProject(t, "> 10\n10\n")

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"run", "--config", configPath, "--phase", "scanner"})
	if code != 0 {
		t.Fatalf("exit code %d (stderr=%q)", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "1 passed, 0 failed (1 total)") {
		t.Fatalf("phase filter:\n%s", stdout.String())
	}

	stdout.Reset()
	code = newRunner(&stdout, &stderr).Run([]string{"run", "--config", configPath, "--phase", "bogus"})
	if code != 2 || !strings.Contains(stderr.String(), "SIMTEST_E_USAGE") {
		t.Fatalf("unknown phase: code %d stderr %q", code, stderr.String())
	}
}

func TestRun_MissingCompiler(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "simtest.yaml")
	if err := os.WriteFile(configPath, []byte("compiler: ./nope\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"run", "--config", configPath})
	if code != 2 || !strings.Contains(stderr.String(), "SIMTEST_E_COMPILER") {
		t.Fatalf("code %d stderr %q", code, stderr.String())
	}
}

func TestList(t *testing.T) {
	_, configPath := writeProject(t, "> 10\n10\n")

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"list", "--config", configPath})
	if code != 0 {
		t.Fatalf("exit code %d (stderr=%q)", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "a.run") || !strings.Contains(out, "[run decent silly]") {
		t.Fatalf("list output:\n%s", out)
	}
	if !strings.Contains(out, "a.scanner") || !strings.Contains(out, "[scanner]") {
		t.Fatalf("list output:\n%s", out)
	}
}

func TestDoctor(t *testing.T) {
	_, configPath := writeProject(t, "> 10\n10\n")

	var stdout, stderr bytes.Buffer
	code := newRunner(&stdout, &stderr).Run([]string{"doctor", "--config", configPath})
	if code != 0 {
		t.Fatalf("exit code %d (stdout=%q)", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "ok   compiler") || !strings.Contains(stdout.String(), "ok   fixtures") {
		t.Fatalf("doctor output:\n%s", stdout.String())
	}

	stdout.Reset()
	code = newRunner(&stdout, &stderr).Run([]string{"doctor", "--config", configPath, "--compiler", "/does/not/exist"})
	if code != 2 || !strings.Contains(stdout.String(), "fail compiler") {
		t.Fatalf("code %d output:\n%s", code, stdout.String())
	}
}

func TestVersionAndUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := newRunner(&stdout, &stderr).Run([]string{"version"}); code != 0 || stdout.String() != "0.0.0-dev\n" {
		t.Fatalf("version: code %d out %q", code, stdout.String())
	}

	stdout.Reset()
	if code := newRunner(&stdout, &stderr).Run([]string{"frobnicate"}); code != 2 || !strings.Contains(stderr.String(), "SIMTEST_E_USAGE") {
		t.Fatalf("unknown command: code %d stderr %q", code, stderr.String())
	}
}
