package selection

import (
	"reflect"
	"testing"
)

type fakePosition struct {
	moves   []string
	missing map[string]bool
}

func (p fakePosition) LegalMoves() []string { return p.moves }

func (p fakePosition) HasSquare(sq string) bool { return !p.missing[sq] }

func TestResolve(t *testing.T) {
	legal := []string{"e2e4", "e2e3", "g1f3", "e7e8q", "e7e8r"}
	if k, c, errs := Resolve(nil, legal); k != Ambiguous || len(c) != len(legal) || errs != nil {
		t.Fatalf("empty path: kind=%s len=%d errs=%v", k, len(c), errs)
	}
	if k, c, _ := Resolve(Path{"g1", "f3"}, legal); k != Unique || c[0].Text != "g1f3" {
		t.Fatalf("g1 f3: kind=%s %v", k, c)
	}
	if k, _, _ := Resolve(Path{"a1"}, legal); k != Empty {
		t.Fatalf("a1: kind=%s", k)
	}
	if k, c, _ := Resolve(Path{"e8", "e7"}, legal); k != Ambiguous || len(c) != 2 {
		t.Fatalf("promotion: kind=%s %v", k, c)
	}
}

func TestResolveReportsMalformed(t *testing.T) {
	k, c, errs := Resolve(Path{"g1"}, []string{"g1f3", "bogus", "e2e4"})
	if k != Unique || c[0].Text != "g1f3" {
		t.Fatalf("kind=%s %v", k, c)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one for the malformed move", errs)
	}
	if k, _, errs := Resolve(Path{"a1"}, []string{"bogus"}); k != Empty || len(errs) != 1 {
		t.Fatalf("only malformed: kind=%s errs=%v", k, errs)
	}
}

func TestFilterSkipsMalformed(t *testing.T) {
	c, errs := Filter(Path{"e2"}, []string{"e2e4", "bogus", "e2e3"})
	if len(c) != 2 || len(errs) != 1 {
		t.Fatalf("candidates=%v errs=%v", c, errs)
	}
}

func TestClickOriginThenDestination(t *testing.T) {
	pos := fakePosition{moves: []string{"e2e4", "e2e3", "g1f3"}}
	s := NewSelector(nil)

	out := s.Click(pos, "e2")
	if out.Kind != Partial {
		t.Fatalf("first click kind=%s", out.Kind)
	}
	if !reflect.DeepEqual(out.Highlights.Destinations, []string{"e4", "e3"}) {
		t.Fatalf("destinations=%v", out.Highlights.Destinations)
	}
	if !reflect.DeepEqual(out.Highlights.Origins, []string{"e2"}) || !reflect.DeepEqual(out.Highlights.Selected, []string{"e2"}) {
		t.Fatalf("highlights=%+v", out.Highlights)
	}

	out = s.Click(pos, "e4")
	if out.Kind != Unique || out.Move != "e2e4" {
		t.Fatalf("second click = %+v", out)
	}
	if len(s.Path()) != 0 {
		t.Fatalf("selection must clear after a move, got %v", s.Path())
	}
}

func TestClickDestinationFirstAutoResolves(t *testing.T) {
	pos := fakePosition{moves: []string{"e2e4", "g1f3"}}
	s := NewSelector(nil)
	out := s.Click(pos, "f3")
	if out.Kind != Unique || out.Move != "g1f3" {
		t.Fatalf("destination click = %+v", out)
	}
}

func TestClickSingleMoveOriginWaits(t *testing.T) {
	pos := fakePosition{moves: []string{"g1f3", "e2e4"}}
	s := NewSelector(nil)
	out := s.Click(pos, "g1")
	if out.Kind != Partial || !reflect.DeepEqual(out.Candidates, []string{"g1f3"}) {
		t.Fatalf("origin click = %+v", out)
	}
	if !reflect.DeepEqual(s.Path(), Path{"g1"}) {
		t.Fatalf("path=%v", s.Path())
	}
}

func TestClickEmptyResets(t *testing.T) {
	pos := fakePosition{moves: []string{"e2e4"}}
	s := NewSelector(nil)
	if out := s.Click(pos, "a1"); out.Kind != Empty {
		t.Fatalf("kind=%s", out.Kind)
	}
	if len(s.Path()) != 0 {
		t.Fatalf("path not cleared")
	}
	s.Click(pos, "e2")
	if out := s.Click(pos, "e2"); out.Kind != Empty {
		t.Fatalf("double click must not match e2e4: %+v", out)
	}
	if len(s.Path()) != 0 {
		t.Fatalf("path not cleared after rejected second click")
	}
}

func TestClickPromotionForcesChoice(t *testing.T) {
	pos := fakePosition{moves: []string{"e7e8q", "e7e8r", "e7e8b", "e7e8n"}}
	s := NewSelector(nil)
	s.Click(pos, "e7")
	out := s.Click(pos, "e8")
	if out.Kind != Ambiguous || len(out.Candidates) != 4 {
		t.Fatalf("expected ambiguity, got %+v", out)
	}
	if len(s.Path()) != 0 {
		t.Fatalf("ambiguity must clear the path")
	}
	res, ok := s.Choose("e7e8n")
	if !ok || res.Kind != Unique || res.Move != "e7e8n" {
		t.Fatalf("Choose = %+v, %v", res, ok)
	}
	if len(s.Pending()) != 0 {
		t.Fatalf("pending not cleared")
	}
}

func TestChooseUnknownMoveResets(t *testing.T) {
	pos := fakePosition{moves: []string{"e7e8q", "e7e8r"}}
	s := NewSelector(nil)
	s.Click(pos, "e7")
	s.Click(pos, "e8")
	if res, ok := s.Choose("a2a3"); ok || res.Kind != Empty {
		t.Fatalf("Choose = %+v, %v", res, ok)
	}
	if len(s.Pending()) != 0 {
		t.Fatalf("pending not cleared")
	}
}

func TestClickGatingWaitsForThirdSquare(t *testing.T) {
	pos := fakePosition{moves: []string{"e2e4,e4e6", "e2e4,e4d5", "d2d4"}}
	s := NewSelector(nil)
	s.Click(pos, "e2")
	out := s.Click(pos, "e4")
	if out.Kind != Partial {
		t.Fatalf("expected to wait for gating square, got %+v", out)
	}
	if !reflect.DeepEqual(out.Highlights.Gating, []string{"e6", "d5"}) {
		t.Fatalf("gating=%v", out.Highlights.Gating)
	}
	out = s.Click(pos, "d5")
	if out.Kind != Unique || out.Move != "e2e4,e4d5" {
		t.Fatalf("third click = %+v", out)
	}
}

func TestClickMixedGatingForcesChoice(t *testing.T) {
	pos := fakePosition{moves: []string{"e2e4", "e2e4,e4e6"}}
	s := NewSelector(nil)
	s.Click(pos, "e2")
	if out := s.Click(pos, "e4"); out.Kind != Ambiguous {
		t.Fatalf("plain and gated candidates must force a choice, got %+v", out)
	}
}

func TestForce(t *testing.T) {
	s := NewSelector(nil)
	if out := s.Force(fakePosition{moves: []string{"e2e4"}}); out.Kind != Unique || out.Move != "e2e4" {
		t.Fatalf("single legal move = %+v", out)
	}
	pos := fakePosition{moves: []string{"g1f3", "e2e4"}}
	s.Click(pos, "g1")
	if out := s.Force(pos); out.Kind != Unique || out.Move != "g1f3" {
		t.Fatalf("forced origin = %+v", out)
	}
	if out := s.Force(pos); out.Kind != Ambiguous || len(out.Candidates) != 2 {
		t.Fatalf("forced empty selection = %+v", out)
	}
	if out := s.Force(fakePosition{}); out.Kind != Empty {
		t.Fatalf("no legal moves = %+v", out)
	}
}

func TestHighlightsSkipMissingPocket(t *testing.T) {
	pos := fakePosition{
		moves:   []string{"P@e4", "P@d4", "e2e4"},
		missing: map[string]bool{"P@": true},
	}
	s := NewSelector(nil)
	out := s.Click(pos, "e4")
	if out.Kind != Partial {
		t.Fatalf("kind=%s", out.Kind)
	}
	if !reflect.DeepEqual(out.Highlights.Origins, []string{"e2"}) {
		t.Fatalf("origins=%v", out.Highlights.Origins)
	}
}

func TestSelectionNeverExceedsFourSquares(t *testing.T) {
	s := NewSelector(nil)
	s.path = Path{"a1", "a2", "a3", "a4"}
	out := s.Click(fakePosition{moves: []string{"a1a2"}}, "a5")
	if out.Kind != Empty || len(s.Path()) != 0 {
		t.Fatalf("overflow must reset: %+v path=%v", out, s.Path())
	}
}
