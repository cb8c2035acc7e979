package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/marcohefti/simtest/internal/config"
	"github.com/marcohefti/simtest/internal/fixture"
	"github.com/marcohefti/simtest/internal/harness"
	"github.com/marcohefti/simtest/internal/phase"
	"github.com/marcohefti/simtest/internal/report"
)

func (r Runner) runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", config.DefaultPath, "path to simtest.yaml")
	compiler := fs.String("compiler", "", "compiler-under-test executable (overrides config)")
	fixturesDir := fs.String("fixtures", "", "fixtures root (overrides config)")
	outRoot := fs.String("out-root", "", "report output root (overrides config)")
	phaseName := fs.String("phase", "", "only run this phase (scanner|cst|st|ast|run|decent|silly)")
	only := fs.String("fixture", "", "only run the fixture with this name")
	timeoutMs := fs.Int("timeout-ms", 0, "per-turn timeout in ms (overrides config)")
	asStdin := fs.Bool("as-stdin", false, "feed sim files over stdin for non-interactive phases")
	jsonOut := fs.Bool("json", false, "print the run report as JSON")
	verbose := fs.Bool("verbose", false, "log every dialogue turn")
	help := fs.Bool("help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return r.failUsage("run: invalid flags")
	}
	if *help {
		fs.SetOutput(r.Stdout)
		fmt.Fprintln(r.Stdout, "Usage: simtest run [flags]")
		fs.PrintDefaults()
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return r.failEnv("SIMTEST_E_CONFIG", err)
	}
	if *compiler != "" {
		cfg.Compiler = *compiler
	}
	if *fixturesDir != "" {
		cfg.Fixtures = *fixturesDir
	}
	if *outRoot != "" {
		cfg.OutRoot = *outRoot
	}
	if *timeoutMs > 0 {
		cfg.TimeoutMs = *timeoutMs
	}
	if *asStdin {
		cfg.AsStdin = true
	}
	if cfg.Compiler == "" {
		return r.failUsage("run: missing --compiler (or compiler in simtest.yaml)")
	}

	var phaseFilter *phase.Phase
	if *phaseName != "" {
		p, ok := phase.ParseName(*phaseName)
		if !ok {
			return r.failUsage(fmt.Sprintf("run: unknown phase %q", *phaseName))
		}
		phaseFilter = &p
	}

	if err := harness.CheckCompiler(cfg.Compiler); err != nil {
		return r.failEnv("SIMTEST_E_COMPILER", err)
	}
	fixtures, err := fixture.Discover(cfg.Fixtures)
	if err != nil {
		return r.failEnv("SIMTEST_E_FIXTURES", err)
	}

	log := zap.NewNop()
	if *verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			log = dev
			defer func() { _ = log.Sync() }()
		}
	}

	h := harness.Harness{
		Compiler: cfg.Compiler,
		Timeout:  cfg.Timeout(),
		AsStdin:  cfg.AsStdin,
		Logger:   log,
		Now:      r.Now,
	}

	started := r.Now()
	rep := report.RunReport{
		RunID:     report.NewRunID(started),
		Compiler:  cfg.Compiler,
		StartedAt: started.UTC().Format(time.RFC3339Nano),
	}

	ctx := context.Background()
	for _, f := range fixtures {
		if *only != "" && f.Name() != *only {
			continue
		}
		phases, err := harness.PhasesFor(f)
		if err != nil {
			return r.failEnv("SIMTEST_E_FIXTURES", err)
		}
		for _, p := range phases {
			if phaseFilter != nil && p != *phaseFilter {
				continue
			}
			fr, err := h.RunFixture(ctx, f, p)
			if err != nil {
				return r.failEnv("SIMTEST_E_RUN", err)
			}
			rep.Fixtures = append(rep.Fixtures, fr)
			if !*jsonOut {
				if fr.Result.Pass {
					fmt.Fprintf(r.Stdout, "ok   %s (%s) %dms\n", fr.Fixture, fr.Phase, fr.DurationMs)
				} else {
					report.RenderFailure(r.Stdout, fr, h.Actions(f, p))
				}
			}
		}
	}

	rep.Finalize(r.Now())
	path, err := report.Write(cfg.OutRoot, rep)
	if err != nil {
		return r.failEnv("SIMTEST_E_ARTIFACT", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(r.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return r.failEnv("SIMTEST_E_ARTIFACT", err)
		}
	} else {
		fmt.Fprintf(r.Stdout, "\n%d passed, %d failed (%d total)\nreport: %s\n",
			rep.Passed, rep.Failed, rep.Total, path)
	}

	if rep.Failed > 0 {
		return 1
	}
	return 0
}
