// Package config loads the harness configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no --config is given.
const DefaultPath = "simtest.yaml"

// Config is the harness's file configuration. Relative paths are resolved
// against the config file's directory so a checked-in simtest.yaml works
// from any working directory.
type Config struct {
	// Compiler is the path to the compiler-under-test executable.
	Compiler string `yaml:"compiler"`
	// Fixtures is the fixtures root directory (default "fixtures").
	Fixtures string `yaml:"fixtures"`
	// OutRoot holds run report artifacts (default ".simtest").
	OutRoot string `yaml:"outRoot"`
	// TimeoutMs bounds each blocking turn of a dialogue (default 5000).
	TimeoutMs int `yaml:"timeoutMs"`
	// AsStdin feeds sim programs over stdin instead of as a path argument.
	// Interactive run files force the path form regardless: input dialogue
	// over an already-consumed stdin is undefined behavior.
	AsStdin bool `yaml:"asStdin"`
}

// Timeout returns the per-turn bound as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Load reads and validates a config file. A missing file at the default path
// yields the zero defaults rather than an error.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) && path == DefaultPath {
		return withDefaults(Config{}, "."), nil
	}
	if err != nil {
		return Config{}, err
	}

	var c Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if c.TimeoutMs < 0 {
		return Config{}, fmt.Errorf("invalid config %s: timeoutMs must be >= 0", path)
	}
	return withDefaults(c, filepath.Dir(path)), nil
}

func withDefaults(c Config, baseDir string) Config {
	if c.Fixtures == "" {
		c.Fixtures = "fixtures"
	}
	if c.OutRoot == "" {
		c.OutRoot = ".simtest"
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = 5000
	}
	c.Compiler = resolve(baseDir, c.Compiler)
	c.Fixtures = resolve(baseDir, c.Fixtures)
	c.OutRoot = resolve(baseDir, c.OutRoot)
	return c
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
