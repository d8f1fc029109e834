package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/fairyboard/internal/rules"
)

var (
	ErrNoPocketSlot = errors.New("no pocket slot for piece")
	ErrOffBoard     = errors.New("square outside board")
)

// Location is where a square identifier lives on screen: a board cell with
// row 0 at the top rank, or a pocket slot of one side.
type Location struct {
	Pocket bool
	Color  rules.Color
	Index  int
	Row    int
	Col    int
}

// BoardLocation builds a board cell location.
func BoardLocation(row, col int) Location { return Location{Row: row, Col: col} }

// PocketLocation builds a pocket slot location.
func PocketLocation(color rules.Color, index int) Location {
	return Location{Pocket: true, Color: color, Index: index}
}

// SquareName converts a location into its square identifier: "e4" for the
// board, "P@" for a pocket slot.
func (s *State) SquareName(loc Location) (string, error) {
	if loc.Pocket {
		p := s.pockets[loc.Color]
		if p == nil || loc.Index < 0 || loc.Index >= len(p.order) {
			return "", fmt.Errorf("%w: %s slot %d", ErrNoPocketSlot, loc.Color, loc.Index)
		}
		return p.order[loc.Index] + "@", nil
	}
	g := s.geometry
	if loc.Row < 0 || loc.Row >= g.Ranks || loc.Col < 0 || loc.Col >= g.Files {
		return "", fmt.Errorf("%w: row %d col %d", ErrOffBoard, loc.Row, loc.Col)
	}
	return fmt.Sprintf("%c%d", 'a'+loc.Col, g.Ranks-loc.Row), nil
}

// Locate converts a square identifier back into a location. Drops resolve
// against the pocket of the side to move.
func (s *State) Locate(square string) (Location, error) {
	if piece, ok := strings.CutSuffix(square, "@"); ok {
		color, err := s.SideToMove()
		if err != nil {
			return Location{}, err
		}
		idx := s.pockets[color].Index(piece)
		if idx < 0 {
			return Location{}, fmt.Errorf("%w: %s", ErrNoPocketSlot, square)
		}
		return PocketLocation(color, idx), nil
	}
	if len(square) < 2 || square[0] < 'a' || square[0] > 'z' {
		return Location{}, fmt.Errorf("%w: %q", ErrOffBoard, square)
	}
	rank, err := strconv.Atoi(square[1:])
	if err != nil {
		return Location{}, fmt.Errorf("%w: %q", ErrOffBoard, square)
	}
	loc := BoardLocation(s.geometry.Ranks-rank, int(square[0]-'a'))
	if loc.Row < 0 || loc.Row >= s.geometry.Ranks || loc.Col >= s.geometry.Files {
		return Location{}, fmt.Errorf("%w: %q", ErrOffBoard, square)
	}
	return loc, nil
}

// HasSquare reports whether square can be located on the board or in the
// pocket of the side to move.
func (s *State) HasSquare(square string) bool {
	_, err := s.Locate(square)
	return err == nil
}
