package notation

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(s string) Move {
	mv, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return mv
}

func TestParseCoordinateMoves(t *testing.T) {
	mv, err := Parse("e2e4,e4e6")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if mv.Kind != KindGated || mv.Origin() != "e2" || mv.Destination() != "e4" {
		t.Fatalf("unexpected first leg: %+v", mv)
	}
	if mv.GatingOrigin() != "e4" || mv.GatingDestination() != "e6" {
		t.Fatalf("unexpected gate leg: %+v", mv.Gate)
	}

	mv = mustParse("h7h8q")
	if mv.Kind != KindSimple || mv.Origin() != "h7" || mv.Destination() != "h8" || mv.Suffix != "q" {
		t.Fatalf("unexpected promotion parse: %+v", mv)
	}
	if mv.IsGated() || mv.GatingDestination() != "" {
		t.Fatalf("promotion must not have a gating leg: %+v", mv)
	}

	mv = mustParse("a10b10+")
	if mv.Origin() != "a10" || mv.Destination() != "b10" || mv.Suffix != "+" {
		t.Fatalf("unexpected multi-digit parse: %+v", mv)
	}
}

func TestParseDropMoves(t *testing.T) {
	cases := []struct {
		in, from, to, piece string
		marker              bool
	}{
		{"Q@a1", "Q@", "a1", "Q", false},
		{"R@b10", "R@", "b10", "R", false},
		{"+P@a1", "P@", "a1", "P", true},
	}
	for _, tc := range cases {
		mv, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if mv.Kind != KindDrop || !mv.IsDrop() {
			t.Fatalf("Parse(%q) kind=%s, want drop", tc.in, mv.Kind)
		}
		if mv.Origin() != tc.from || mv.Destination() != tc.to || mv.DropPiece() != tc.piece || mv.Marker != tc.marker {
			t.Fatalf("Parse(%q) = %+v", tc.in, mv)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "e2", "e2e", "E2e4", "e2e4qq", "e2e4,", "e2e4,e4", "P@", "p@a1", "e2e4 ", "e2e4,P@a1", "e2e4,e4e6q"} {
		if _, err := Parse(in); !errors.Is(err, ErrMalformedMove) {
			t.Fatalf("Parse(%q) err=%v, want ErrMalformedMove", in, err)
		}
	}
}

func TestParseSuffixDoesNotEatNextLeg(t *testing.T) {
	mv := mustParse("e7e8q,e8e9")
	if mv.Suffix != "q" || mv.GatingOrigin() != "e8" || mv.GatingDestination() != "e9" {
		t.Fatalf("unexpected parse: %+v", mv)
	}
	mv = mustParse("a9a10")
	if mv.Destination() != "a10" || mv.Suffix != "" {
		t.Fatalf("rank digits must belong to the square: %+v", mv)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, in := range []string{"e2e4", "e7e8q", "+P@a10", "a10b10+", "e2e4,e4e6", "g1g1", "e1g1-", "N@c3"} {
		first := mustParse(in)
		if first.String() != in {
			t.Fatalf("String() = %q, want %q", first.String(), in)
		}
		second, err := Parse(first.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", in, err)
		}
		if second != first {
			t.Fatalf("round trip mismatch: %+v vs %+v", first, second)
		}
	}
}

func TestParseAllSkipsMalformed(t *testing.T) {
	moves, errs := ParseAll([]string{"e2e4", "junk", "P@a1"})
	if len(moves) != 2 || len(errs) != 1 {
		t.Fatalf("got %d moves, %d errors", len(moves), len(errs))
	}
	if moves[0].String() != "e2e4" || moves[1].String() != "P@a1" {
		t.Fatalf("unexpected order: %v", moves)
	}
}

func TestContainsEmptySelection(t *testing.T) {
	for _, in := range []string{"e2e4", "P@a1", "e2e4,e4e6"} {
		if !mustParse(in).Contains(nil) {
			t.Fatalf("%s must contain the empty selection", in)
		}
	}
}

func TestContainsPromotion(t *testing.T) {
	mv := mustParse("e7e8q")
	want := map[string]bool{
		"e7":    true,
		"e8":    true,
		"e7 e8": true,
		"e8 e7": true,
		"e7 e7": false,
		"e8 e8": false,
		"e6":    false,
	}
	for sel, ok := range want {
		if got := mv.Contains(split(sel)); got != ok {
			t.Fatalf("Contains(%q) = %v, want %v", sel, got, ok)
		}
	}
}

func TestContainsNullMove(t *testing.T) {
	mv := mustParse("g1g1")
	if !mv.Contains([]string{"g1", "g1"}) {
		t.Fatalf("in-place move must accept a repeated square")
	}
}

func TestContainsMultiDigitDrop(t *testing.T) {
	mv := mustParse("+P@a10")
	if !mv.Contains([]string{"P@", "a10"}) {
		t.Fatalf("expected drop to match piece and square")
	}
	if !mv.Contains([]string{"P@"}) {
		t.Fatalf("expected drop to match piece alone")
	}
	if mv.Contains([]string{"a1"}) {
		t.Fatalf("a1 must not match a10")
	}
}

func TestContainsGating(t *testing.T) {
	mv := mustParse("e2e4,e4e6")
	for _, sel := range []string{"e2 e4 e6", "e4 e2 e6", "e2 e4 e4", "e2 e4 e4 e6"} {
		if !mv.Contains(split(sel)) {
			t.Fatalf("Contains(%q) = false, want true", sel)
		}
	}
	for _, sel := range []string{"e2 e4 e2", "e4 e2 e4 e4", "e2 e4 e6 e4"} {
		if mv.Contains(split(sel)) {
			t.Fatalf("Contains(%q) = true, want false", sel)
		}
	}
	if mustParse("e2e4").Contains([]string{"e2", "e4", "e4"}) {
		t.Fatalf("single leg move must not match three squares")
	}
	if mv.Contains([]string{"e2", "e4", "e4", "e6", "e6"}) {
		t.Fatalf("more than four squares never match")
	}
}

func split(sel string) []string { return strings.Fields(sel) }
