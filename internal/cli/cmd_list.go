package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/marcohefti/simtest/internal/config"
	"github.com/marcohefti/simtest/internal/fixture"
	"github.com/marcohefti/simtest/internal/harness"
)

func (r Runner) runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", config.DefaultPath, "path to simtest.yaml")
	fixturesDir := fs.String("fixtures", "", "fixtures root (overrides config)")
	help := fs.Bool("help", false, "show help")

	if err := fs.Parse(args); err != nil {
		return r.failUsage("list: invalid flags")
	}
	if *help {
		fs.SetOutput(r.Stdout)
		fmt.Fprintln(r.Stdout, "Usage: simtest list [flags]")
		fs.PrintDefaults()
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return r.failEnv("SIMTEST_E_CONFIG", err)
	}
	if *fixturesDir != "" {
		cfg.Fixtures = *fixturesDir
	}

	fixtures, err := fixture.Discover(cfg.Fixtures)
	if err != nil {
		return r.failEnv("SIMTEST_E_FIXTURES", err)
	}
	for _, f := range fixtures {
		phases, err := harness.PhasesFor(f)
		if err != nil {
			return r.failEnv("SIMTEST_E_FIXTURES", err)
		}
		names := make([]string, 0, len(phases))
		for _, p := range phases {
			names = append(names, p.String())
		}
		fmt.Fprintf(r.Stdout, "%s\t%s\t[%s]\n", f.Name(), f.PhaseFilePath, strings.Join(names, " "))
	}
	return 0
}
