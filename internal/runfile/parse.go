package runfile

import (
	"strings"

	"github.com/marcohefti/simtest/internal/errpos"
)

const (
	separator   = "-----"
	inputPrefix = "> "
	errorPrefix = "error: "
)

type srcLine struct {
	num  int // 1-based
	text string
}

// Parse turns raw run-file text into a Script. Comments (full-line "#...")
// and blank lines are discarded and never become actions. Exactly two
// "-----" separators introduce the decent and silly error-track sections;
// zero separators leave both tracks empty with the whole file as the action
// body. Any other separator count fails.
func Parse(text string) (*Script, error) {
	var lines []srcLine
	var seps []int // indexes into lines
	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == separator {
			seps = append(seps, len(lines))
		}
		lines = append(lines, srcLine{num: i + 1, text: trimmed})
	}

	var s Script
	body := lines
	switch len(seps) {
	case 0:
	case 2:
		decent := lines[:seps[0]]
		silly := lines[seps[0]+1 : seps[1]]
		body = lines[seps[1]+1:]
		track, err := parseTrack(decent)
		if err != nil {
			return nil, err
		}
		s.Tracks[0] = track
		track, err = parseTrack(silly)
		if err != nil {
			return nil, err
		}
		s.Tracks[1] = track
	default:
		return nil, &ParseError{
			Line:    lines[seps[0]].num,
			Message: "expected exactly two \"-----\" separators or none",
		}
	}

	for _, ln := range body {
		s.Actions = append(s.Actions, parseAction(ln))
	}
	return &s, nil
}

// parseTrack reads one compile-time error-track section: empty means no
// error, one "error: ..." line means an error is expected there.
func parseTrack(section []srcLine) (ErrorTrack, error) {
	switch len(section) {
	case 0:
		return ErrorTrack{}, nil
	case 1:
		ln := section[0]
		rest, ok := strings.CutPrefix(ln.text, errorPrefix)
		if !ok {
			return ErrorTrack{}, &ParseError{Line: ln.num, Message: "error track line must start with \"error: \""}
		}
		text, pos := errpos.ParseSuffix(rest)
		return ErrorTrack{Present: true, Pos: pos, Text: text}, nil
	default:
		return ErrorTrack{}, &ParseError{Line: section[1].num, Message: "error track holds at most one line"}
	}
}

func parseAction(ln srcLine) Action {
	if rest, ok := strings.CutPrefix(ln.text, inputPrefix); ok {
		return Action{Kind: ActionInput, Value: strings.TrimSpace(rest), SourceLine: ln.num}
	}
	if rest, ok := strings.CutPrefix(ln.text, errorPrefix); ok {
		text, pos := errpos.ParseSuffix(rest)
		return Action{Kind: ActionExpectError, Pos: pos, Text: text, SourceLine: ln.num}
	}
	// Inline "#" is kept: comments are full-line only, so an output
	// expectation may legitimately contain a hash.
	return Action{Kind: ActionExpectOutput, Value: ln.text, SourceLine: ln.num}
}
