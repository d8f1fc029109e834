// Package notation parses the coordinate move strings produced by the rules oracle.
//
// A move is one leg (`e2e4`, `a10b10+`, `P@a1`), optionally prefixed with `+`
// and followed by a single suffix character, and optionally chained with a
// second board leg after a comma (`e2e4,e4e6`). Files are lowercase letters,
// ranks are one or more digits and drops are an uppercase piece letter
// followed by `@`, so origin and destination never need outside context.
package notation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSquares is the most squares any move references: two legs of two squares.
const MaxSquares = 4

var ErrMalformedMove = errors.New("malformed move")

var movePattern = regexp.MustCompile(`^(\+)?([A-Z]@|[a-z][0-9]+)([a-z][0-9]+)([a-z+-])?(?:,([a-z][0-9]+)([a-z][0-9]+))?$`)

// Kind tags the shape of a parsed move.
type Kind uint8

const (
	KindSimple Kind = iota
	KindDrop
	KindGated
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindDrop:
		return "drop"
	case KindGated:
		return "gated"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Leg is one origin/destination pair. For a drop, From is the piece letter plus "@".
type Leg struct {
	From string
	To   string
}

// Move is the immutable record of one legal-move string.
type Move struct {
	Kind   Kind
	Marker bool
	First  Leg
	Gate   Leg
	Suffix string
}

// Parse parses a single legal-move string.
func Parse(s string) (Move, error) {
	m := movePattern.FindStringSubmatch(s)
	if m == nil {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedMove, s)
	}
	mv := Move{
		Marker: m[1] != "",
		First:  Leg{From: m[2], To: m[3]},
		Suffix: m[4],
		Gate:   Leg{From: m[5], To: m[6]},
	}
	switch {
	case mv.Gate.From != "":
		mv.Kind = KindGated
	case strings.HasSuffix(mv.First.From, "@"):
		mv.Kind = KindDrop
	default:
		mv.Kind = KindSimple
	}
	return mv, nil
}

// ParseAll parses every string, returning the well-formed moves in input
// order alongside the errors of the rejected ones.
func ParseAll(moves []string) ([]Move, []error) {
	out := make([]Move, 0, len(moves))
	var errs []error
	for _, s := range moves {
		mv, err := Parse(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, mv)
	}
	return out, errs
}

func (m Move) Origin() string            { return m.First.From }
func (m Move) Destination() string       { return m.First.To }
func (m Move) GatingOrigin() string      { return m.Gate.From }
func (m Move) GatingDestination() string { return m.Gate.To }

// IsDrop reports whether the first leg places a piece from the pocket.
func (m Move) IsDrop() bool { return strings.HasSuffix(m.First.From, "@") }

// IsGated reports whether the move has a second leg.
func (m Move) IsGated() bool { return m.Gate.From != "" }

// DropPiece returns the dropped piece letter, or "" for board moves.
func (m Move) DropPiece() string {
	if !m.IsDrop() {
		return ""
	}
	return strings.TrimSuffix(m.First.From, "@")
}

// String returns the canonical notation of the move.
func (m Move) String() string {
	var sb strings.Builder
	if m.Marker {
		sb.WriteByte('+')
	}
	sb.WriteString(m.First.From)
	sb.WriteString(m.First.To)
	sb.WriteString(m.Suffix)
	if m.IsGated() {
		sb.WriteByte(',')
		sb.WriteString(m.Gate.From)
		sb.WriteString(m.Gate.To)
	}
	return sb.String()
}

// Contains reports whether the clicked squares can all belong to this move.
//
// The first two squares match origin and destination in either order, and a
// repeated square only matches a move that starts and ends on it. The third
// square must be one of the gating squares and the fourth the gating
// destination.
func (m Move) Contains(squares []string) bool {
	n := len(squares)
	if n == 0 {
		return true
	}
	if n > MaxSquares {
		return false
	}
	from, to := m.First.From, m.First.To
	if squares[0] != from && squares[0] != to {
		return false
	}
	if n < 2 {
		return true
	}
	if squares[1] != from && squares[1] != to {
		return false
	}
	if squares[0] == squares[1] && from != to {
		return false
	}
	if n < 3 {
		return true
	}
	if !m.IsGated() || (squares[2] != m.Gate.From && squares[2] != m.Gate.To) {
		return false
	}
	if n < 4 {
		return true
	}
	return squares[3] == m.Gate.To
}
