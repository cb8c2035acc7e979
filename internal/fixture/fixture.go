// Package fixture discovers test fixtures on disk and pairs phase files with
// the sim programs they exercise.
//
// A fixture is at least two files: a sim program (fixtures/**/*.sim) fed to
// the compiler-under-test, and a phase file whose extension names the
// compiler phase whose expected output it holds. One sim file may carry any
// number of phase files; a run file may use a dotted subname (foo.2.run) to
// share foo.sim with other dialogues.
package fixture

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Fixture pairs one phase file with its sim program.
type Fixture struct {
	// Root is the fixtures directory the fixture was discovered under.
	Root string
	// PhaseFilePath is the phase file, relative to Root.
	PhaseFilePath string
}

// Name is the fixture's stable identifier: the phase-file path without its
// extension, with separators and dots flattened to underscores so it can
// double as a test name (fixtures/foo/bar.2.run -> foo_bar_2).
func (f Fixture) Name() string {
	p := strings.TrimSuffix(f.PhaseFilePath, filepath.Ext(f.PhaseFilePath))
	p = filepath.ToSlash(p)
	p = strings.ReplaceAll(p, "/", "_")
	return strings.ReplaceAll(p, ".", "_")
}

// PhaseExt is the phase-file extension without the dot ("scanner", "run", ...).
func (f Fixture) PhaseExt() string {
	return strings.TrimPrefix(filepath.Ext(f.PhaseFilePath), ".")
}

// SimFilePath is the paired sim program, relative to Root: the phase
// extension is dropped, and one dotted subname after it, if any.
func (f Fixture) SimFilePath() string {
	base := strings.TrimSuffix(f.PhaseFilePath, filepath.Ext(f.PhaseFilePath))
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".sim"
}

// AbsPhaseFile and AbsSimFile resolve against the fixtures root.
func (f Fixture) AbsPhaseFile() string { return filepath.Join(f.Root, f.PhaseFilePath) }
func (f Fixture) AbsSimFile() string   { return filepath.Join(f.Root, f.SimFilePath()) }

// Discover walks the fixtures root and returns every fixture, sorted by
// phase-file path. Inconsistent trees fail loudly: a phase file without its
// sim program is usually a typo, and a sim program with no phase files is
// usually a test that never got checked in.
func Discover(root string) ([]Fixture, error) {
	var fixtures []Fixture
	simFiles := map[string]bool{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if filepath.Ext(rel) == "" {
			return fmt.Errorf("unexpected fixture file (no extension): %s", rel)
		}
		if filepath.Ext(rel) == ".sim" {
			simFiles[rel] = true
			return nil
		}
		fixtures = append(fixtures, Fixture{Root: root, PhaseFilePath: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var missing, used []string
	usedSet := map[string]bool{}
	for _, f := range fixtures {
		sim := f.SimFilePath()
		if !usedSet[sim] {
			usedSet[sim] = true
			used = append(used, sim)
		}
		if !simFiles[sim] {
			missing = append(missing, sim)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("these *.sim files have phases, but are missing:\n%s", strings.Join(dedup(missing), "\n"))
	}

	var testless []string
	for sim := range simFiles {
		if !usedSet[sim] {
			testless = append(testless, sim)
		}
	}
	if len(testless) > 0 {
		sort.Strings(testless)
		return nil, fmt.Errorf("these *.sim files have no phases:\n%s", strings.Join(testless, "\n"))
	}

	// Flattening '/' and '.' to '_' can collide (a/b vs a_b). Checked per
	// sim file so multiple phases of one program don't trip it.
	names := map[string]string{}
	for _, sim := range used {
		f := Fixture{Root: root, PhaseFilePath: sim}
		name := f.Name()
		if prev, ok := names[name]; ok {
			return nil, fmt.Errorf("fixture name collision between %s and %s", prev, sim)
		}
		names[name] = sim
	}

	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].PhaseFilePath < fixtures[j].PhaseFilePath })
	return fixtures, nil
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
