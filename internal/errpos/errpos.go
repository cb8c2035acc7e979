// Package errpos extracts and compares source positions in compiler
// diagnostics. Matching is deliberately fuzzy: a position pins down where an
// error happened, the message text never participates in comparisons.
package errpos

import (
	"regexp"
	"strconv"
	"strings"
)

// Pos is a 1-based (line, column) source position.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (p Pos) String() string {
	return "(" + strconv.Itoa(p.Line) + ", " + strconv.Itoa(p.Col) + ")"
}

// Matches reports whether an expected position accepts an actual one. A nil
// expected position matches anything, including no position at all. A non-nil
// expected position requires an actual position with the same line and column.
func Matches(expected, actual *Pos) bool {
	if expected == nil {
		return true
	}
	if actual == nil {
		return false
	}
	return expected.Line == actual.Line && expected.Col == actual.Col
}

var (
	reSuffix = regexp.MustCompile(`@\(\s*(\d+)\s*,\s*(\d+)\s*\)\s*$`)
	rePair   = regexp.MustCompile(`\(\s*(\d+)\s*,\s*(\d+)\s*\)`)
	reColon  = regexp.MustCompile(`(\d+):(\d+)`)
)

// ParseSuffix splits an expectation line of the form "text@(line, col)" into
// the text and its position. A missing or malformed suffix yields a nil
// position and the input unchanged: position matching is best-effort, so a
// typo in the suffix must degrade to match-anywhere, never to a parse error.
func ParseSuffix(s string) (text string, pos *Pos) {
	m := reSuffix.FindStringSubmatchIndex(s)
	if m == nil {
		return s, nil
	}
	p, ok := atoiPair(s[m[2]:m[3]], s[m[4]:m[5]])
	if !ok {
		return s, nil
	}
	return strings.TrimRight(s[:m[0]], " \t"), p
}

// FromDiagnostic pulls the first position out of a compiler diagnostic line.
// Both "(3, 5)" and "3:5" shapes are recognized; the surrounding text is
// ignored so harness fixtures stay decoupled from exact diagnostic wording.
func FromDiagnostic(line string) *Pos {
	if m := rePair.FindStringSubmatch(line); m != nil {
		if p, ok := atoiPair(m[1], m[2]); ok {
			return p
		}
	}
	if m := reColon.FindStringSubmatch(line); m != nil {
		if p, ok := atoiPair(m[1], m[2]); ok {
			return p
		}
	}
	return nil
}

func atoiPair(a, b string) (*Pos, bool) {
	line, err := strconv.Atoi(a)
	if err != nil || line < 1 {
		return nil, false
	}
	col, err := strconv.Atoi(b)
	if err != nil || col < 1 {
		return nil, false
	}
	return &Pos{Line: line, Col: col}, true
}
