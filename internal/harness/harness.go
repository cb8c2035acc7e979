// Package harness executes fixtures against the compiler-under-test: it
// picks the phases a fixture exercises, spawns one subprocess per execution,
// and collects the results into a run report.
package harness

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marcohefti/simtest/internal/driver"
	"github.com/marcohefti/simtest/internal/fixture"
	"github.com/marcohefti/simtest/internal/outputphase"
	"github.com/marcohefti/simtest/internal/phase"
	"github.com/marcohefti/simtest/internal/report"
	"github.com/marcohefti/simtest/internal/runfile"
)

// Harness drives one compiler binary through a set of fixtures. Executions
// are sequential: each owns its subprocess exclusively, start to kill.
type Harness struct {
	Compiler string
	Timeout  time.Duration
	// AsStdin feeds the sim program over stdin for non-interactive phases.
	// Interactive dialogues always pass the path: writing dialogue input
	// after stdin has been consumed is undefined for the compiler.
	AsStdin bool
	Logger  *zap.Logger

	Now func() time.Time
}

// CheckCompiler verifies the compiler-under-test can be invoked at all:
// the path must exist and be an executable file.
func CheckCompiler(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("compiler not found: %s", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("compiler is a directory: %s", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("compiler not executable: %s", path)
	}
	return nil
}

// PhasesFor lists the compiler phases a fixture exercises. A ".run" file
// covers every interactive phase; other extensions map to exactly one.
func PhasesFor(f fixture.Fixture) ([]phase.Phase, error) {
	p, ok := phase.ByExtension(f.PhaseExt())
	if !ok {
		return nil, fmt.Errorf("fixture %s: unknown phase extension %q", f.PhaseFilePath, f.PhaseExt())
	}
	if p == phase.Interpreter {
		return []phase.Phase{phase.Interpreter, phase.DecentCodegen, phase.SillyCodegen}, nil
	}
	return []phase.Phase{p}, nil
}

// RunFixture executes one fixture in one phase. The returned error covers
// harness-level trouble only (unreadable fixture, unspawnable compiler);
// conformance failures land in the result.
func (h Harness) RunFixture(ctx context.Context, f fixture.Fixture, p phase.Phase) (report.FixtureResult, error) {
	start := h.now()
	fr := report.FixtureResult{
		Fixture:   f.Name(),
		Phase:     p.String(),
		PhaseFile: f.PhaseFilePath,
		SimFile:   f.SimFilePath(),
	}

	var res driver.Result
	var err error
	if p.Interactive() {
		res, fr.Cmd, err = h.runInteractive(ctx, f, p)
	} else {
		res, fr.Cmd, err = h.runOutput(ctx, f, p)
	}
	if err != nil {
		return report.FixtureResult{}, err
	}
	fr.Result = res
	fr.DurationMs = h.now().Sub(start).Milliseconds()
	return fr, nil
}

func (h Harness) runInteractive(ctx context.Context, f fixture.Fixture, p phase.Phase) (driver.Result, string, error) {
	raw, err := os.ReadFile(f.AbsPhaseFile())
	if err != nil {
		return driver.Result{}, "", err
	}
	inv := driver.Invocation{
		Path:   h.Compiler,
		Args:   p.Args(f.AbsSimFile()),
		Logger: h.Logger,
	}
	cmd := invocationCmd(inv)

	script, err := runfile.Parse(string(raw))
	if err != nil {
		return driver.ParseFailure(err), cmd, nil
	}
	res, err := driver.Run(ctx, script, inv.Starter(), driver.Options{
		Phase:   p,
		Timeout: h.Timeout,
		Logger:  h.Logger,
	})
	if err != nil {
		return driver.Result{}, "", fmt.Errorf("fixture %s: %w", f.PhaseFilePath, err)
	}
	return res, cmd, nil
}

func (h Harness) runOutput(ctx context.Context, f fixture.Fixture, p phase.Phase) (driver.Result, string, error) {
	expect, err := outputphase.Load(f.AbsPhaseFile())
	if err != nil {
		return driver.Result{}, "", err
	}
	inv := driver.Invocation{Path: h.Compiler, Logger: h.Logger}
	if h.AsStdin {
		inv.Args = p.ArgsStdin()
		inv.StdinFile = f.AbsSimFile()
	} else {
		inv.Args = p.Args(f.AbsSimFile())
	}
	cmd := invocationCmd(inv)

	prog, err := inv.Start(ctx)
	if err != nil {
		return driver.Result{}, "", fmt.Errorf("fixture %s: %w", f.PhaseFilePath, err)
	}
	defer prog.Kill()

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = driver.DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	completed, err := prog.Wait(waitCtx)
	if err != nil {
		return driver.Result{
			Reason:      driver.ReasonTimeout,
			ActionIndex: -1,
			Detail:      "compiler did not finish within the bounded wait",
		}, cmd, nil
	}
	return expect.Evaluate(completed), cmd, nil
}

// Actions re-parses a fixture's run file for failure rendering; output-phase
// fixtures have none.
func (h Harness) Actions(f fixture.Fixture, p phase.Phase) []runfile.Action {
	if !p.Interactive() {
		return nil
	}
	raw, err := os.ReadFile(f.AbsPhaseFile())
	if err != nil {
		return nil
	}
	script, err := runfile.Parse(string(raw))
	if err != nil {
		return nil
	}
	return script.Actions
}

func (h Harness) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// invocationCmd renders the equivalent shell command for diagnostics.
func invocationCmd(inv driver.Invocation) string {
	parts := append([]string{inv.Path}, inv.Args...)
	cmd := strings.Join(parts, " ")
	if inv.StdinFile != "" {
		cmd += " < " + inv.StdinFile
	}
	return cmd
}
