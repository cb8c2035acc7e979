package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/marcohefti/simtest/internal/config"
	"github.com/marcohefti/simtest/internal/fixture"
	"github.com/marcohefti/simtest/internal/harness"
)

// doctor runs the same preflight checks "run" does, but reports all of them
// instead of stopping at the first.
func (r Runner) runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", config.DefaultPath, "path to simtest.yaml")
	compiler := fs.String("compiler", "", "compiler-under-test executable (overrides config)")
	fixturesDir := fs.String("fixtures", "", "fixtures root (overrides config)")
	help := fs.Bool("help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return r.failUsage("doctor: invalid flags")
	}
	if *help {
		fs.SetOutput(r.Stdout)
		fmt.Fprintln(r.Stdout, "Usage: simtest doctor [flags]")
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

	healthy := true
	check := func(name string, err error) {
		if err != nil {
			healthy = false
			fmt.Fprintf(r.Stdout, "fail %s: %v\n", name, err)
			return
		}
		fmt.Fprintf(r.Stdout, "ok   %s\n", name)
	}

	if cfg.Compiler == "" {
		check("compiler", fmt.Errorf("no compiler configured (use --compiler or simtest.yaml)"))
	} else {
		check("compiler", harness.CheckCompiler(cfg.Compiler))
	}

	if info, err := os.Stat(cfg.Fixtures); err != nil {
		check("fixtures", err)
	} else if !info.IsDir() {
		check("fixtures", fmt.Errorf("not a directory: %s", cfg.Fixtures))
	} else {
		_, err := fixture.Discover(cfg.Fixtures)
		check("fixtures", err)
	}

	if !healthy {
		return 2
	}
	return 0
}
