package selection

import (
	"github.com/park285/fairyboard/internal/notation"
	"go.uber.org/zap"
)

// Position is what the selector needs from the game: the current legal
// moves and whether a square identifier exists on the board or in the
// pocket of the side to move.
type Position interface {
	LegalMoves() []string
	HasSquare(square string) bool
}

// Highlights lists the squares a display should mark after a click.
type Highlights struct {
	Selected     []string `json:"selected,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
	Origins      []string `json:"origins,omitempty"`
	Gating       []string `json:"gating,omitempty"`
}

// Outcome is the result of one selector step. Move is set for Unique,
// Candidates for Partial and Ambiguous.
type Outcome struct {
	Kind       Kind
	Move       string
	Candidates []string
	Path       Path
	Highlights Highlights
}

// Selector tracks clicks between resolutions. It is not safe for
// concurrent use; the orchestrator serializes access.
type Selector struct {
	path    Path
	pending []string
	logger  *zap.Logger
}

func NewSelector(logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{logger: logger}
}

// Path returns a copy of the current selection.
func (s *Selector) Path() Path { return append(Path(nil), s.path...) }

// Pending returns the candidates of an unresolved ambiguity.
func (s *Selector) Pending() []string { return append([]string(nil), s.pending...) }

// Reset clears the selection and any pending ambiguity.
func (s *Selector) Reset() {
	s.path = nil
	s.pending = nil
}

// Click adds square to the selection and resolves it against the legal moves.
func (s *Selector) Click(pos Position, square string) Outcome {
	s.pending = nil
	if len(s.path) >= notation.MaxSquares {
		s.logger.Warn("selection_overflow", zap.Strings("path", s.path), zap.String("square", square))
		s.Reset()
		return Outcome{Kind: Empty}
	}
	s.path = append(s.path, square)
	candidates := s.filter(pos)

	var (
		force bool
		hl    Highlights
	)
	switch {
	case len(s.path) == 1:
		if len(candidates) == 0 {
			path := s.Path()
			s.Reset()
			return Outcome{Kind: Empty, Path: path}
		}
		hl = firstClickHighlights(pos, square, candidates)
	case len(candidates) > 1:
		if awaitsGate(candidates) {
			hl = Highlights{Selected: s.Path(), Gating: gatingTargets(pos, candidates)}
		} else {
			force = true
		}
	}
	return s.finish(candidates, force, hl)
}

// Force resolves the current selection immediately, as the "move" button
// does. Several candidates become an explicit ambiguity.
func (s *Selector) Force(pos Position) Outcome {
	s.pending = nil
	return s.finish(s.filter(pos), true, Highlights{})
}

// Choose settles a pending ambiguity. A move that was not offered resets
// the selector and reports false.
func (s *Selector) Choose(move string) (Outcome, bool) {
	for _, c := range s.pending {
		if c == move {
			s.Reset()
			return Outcome{Kind: Unique, Move: move}, true
		}
	}
	s.Reset()
	return Outcome{Kind: Empty}, false
}

func (s *Selector) filter(pos Position) []Candidate {
	candidates, errs := Filter(s.path, pos.LegalMoves())
	for _, err := range errs {
		s.logger.Warn("malformed_legal_move", zap.Error(err))
	}
	return candidates
}

func (s *Selector) finish(candidates []Candidate, force bool, hl Highlights) Outcome {
	path := s.Path()
	switch {
	case len(candidates) == 0:
		s.Reset()
		return Outcome{Kind: Empty, Path: path}
	case force && len(candidates) > 1:
		s.path = nil
		s.pending = texts(candidates)
		return Outcome{Kind: Ambiguous, Candidates: s.Pending(), Path: path}
	case len(candidates) == 1 && (force || len(path) != 1 || path[0] != candidates[0].Move.Origin()):
		s.Reset()
		return Outcome{Kind: Unique, Move: candidates[0].Text, Path: path}
	}
	return Outcome{Kind: Partial, Candidates: texts(candidates), Path: path, Highlights: hl}
}

// awaitsGate reports whether another click can still narrow the
// candidates: all of them are two-leg moves with different second legs.
func awaitsGate(candidates []Candidate) bool {
	seen := make(map[notation.Leg]struct{})
	for _, c := range candidates {
		if !c.Move.IsGated() {
			return false
		}
		seen[c.Move.Gate] = struct{}{}
	}
	return len(seen) > 1
}

func firstClickHighlights(pos Position, square string, candidates []Candidate) Highlights {
	var dest, orig []string
	for _, c := range candidates {
		dest = appendSquare(pos, dest, c.Move.Destination())
	}
	for _, c := range candidates {
		orig = appendSquare(pos, orig, c.Move.Origin())
	}
	return Highlights{Selected: []string{square}, Destinations: dest, Origins: orig}
}

func gatingTargets(pos Position, candidates []Candidate) []string {
	var out []string
	for _, c := range candidates {
		out = appendSquare(pos, out, c.Move.GatingDestination())
	}
	return out
}

// appendSquare adds sq once, skipping squares with no location such as a
// drop whose piece has no pocket slot.
func appendSquare(pos Position, list []string, sq string) []string {
	if sq == "" || !pos.HasSquare(sq) {
		return list
	}
	for _, v := range list {
		if v == sq {
			return list
		}
	}
	return append(list, sq)
}
