package errpos

import "testing"

func TestParseSuffix_WithPosition(t *testing.T) {
	text, pos := ParseSuffix("error: division by zero @(3, 5)")
	if text != "error: division by zero" {
		t.Fatalf("text = %q", text)
	}
	if pos == nil || pos.Line != 3 || pos.Col != 5 {
		t.Fatalf("pos = %+v", pos)
	}
}

func TestParseSuffix_NoPosition(t *testing.T) {
	text, pos := ParseSuffix("error: something broke")
	if text != "error: something broke" {
		t.Fatalf("text = %q", text)
	}
	if pos != nil {
		t.Fatalf("expected nil pos, got %+v", pos)
	}
}

func TestParseSuffix_MalformedSuffixIsKeptAsText(t *testing.T) {
	// A suffix that does not parse as @(line, col) stays part of the message
	// and pins no position.
	text, pos := ParseSuffix("error: bad @(x, 5)")
	if text != "error: bad @(x, 5)" {
		t.Fatalf("text = %q", text)
	}
	if pos != nil {
		t.Fatalf("expected nil pos, got %+v", pos)
	}
}

func TestParseSuffix_ZeroCoordinateRejected(t *testing.T) {
	_, pos := ParseSuffix("error: e @(0, 5)")
	if pos != nil {
		t.Fatalf("positions are 1-based, got %+v", pos)
	}
}

func TestFromDiagnostic_Shapes(t *testing.T) {
	cases := []struct {
		line string
		want *Pos
	}{
		{"error (3, 5): division by zero", &Pos{3, 5}},
		{"error at 12:40 unexpected token", &Pos{12, 40}},
		{"error: no coordinates here", nil},
		{"(0, 5) zero line", nil},
	}
	for _, tc := range cases {
		got := FromDiagnostic(tc.line)
		if (got == nil) != (tc.want == nil) {
			t.Fatalf("%q: got %+v want %+v", tc.line, got, tc.want)
		}
		if got != nil && *got != *tc.want {
			t.Fatalf("%q: got %+v want %+v", tc.line, got, tc.want)
		}
	}
}

func TestMatches(t *testing.T) {
	if !Matches(nil, &Pos{3, 5}) {
		t.Fatal("nil expectation must match any position")
	}
	if !Matches(nil, nil) {
		t.Fatal("nil expectation must match a missing position")
	}
	if !Matches(&Pos{3, 5}, &Pos{3, 5}) {
		t.Fatal("equal positions must match")
	}
	if Matches(&Pos{3, 5}, &Pos{4, 5}) {
		t.Fatal("differing lines must not match")
	}
	if Matches(&Pos{3, 5}, nil) {
		t.Fatal("pinned expectation must not match a missing position")
	}
}
