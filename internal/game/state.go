// Package game holds the position being edited: variant, start position,
// move list and the pockets derived from the current FEN.
package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/fairyboard/internal/rules"
)

var ErrNothingToUndo = errors.New("no moves to undo")

// Pocket is one side's hand in first-seen order. Pieces that run out keep
// their slot with a zero count so slot indices stay stable.
type Pocket struct {
	order  []string
	counts map[string]int
}

func newPocket() *Pocket { return &Pocket{counts: make(map[string]int)} }

// Pieces lists the pocket pieces in slot order.
func (p *Pocket) Pieces() []string { return append([]string(nil), p.order...) }

func (p *Pocket) Count(piece string) int { return p.counts[piece] }

// Index returns the slot of piece, or -1.
func (p *Pocket) Index(piece string) int {
	for i, v := range p.order {
		if v == piece {
			return i
		}
	}
	return -1
}

func (p *Pocket) set(piece string, n int) {
	if _, ok := p.counts[piece]; !ok {
		p.order = append(p.order, piece)
	}
	p.counts[piece] = n
}

// State is the game being viewed and edited.
type State struct {
	oracle   rules.Oracle
	variant  string
	startFEN string
	moves    []string
	pockets  map[rules.Color]*Pocket
	geometry rules.Geometry
}

// New starts a game of variant. An empty startFEN means the variant's
// initial position.
func New(oracle rules.Oracle, variant, startFEN string, moves []string) (*State, error) {
	if oracle == nil {
		return nil, errors.New("nil rules oracle")
	}
	variantStart, err := oracle.StartFEN(variant)
	if err != nil {
		return nil, err
	}
	geometry, err := oracle.Geometry(variant)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(startFEN) == "" {
		startFEN = variantStart
	}
	s := &State{
		oracle:   oracle,
		variant:  variant,
		startFEN: strings.TrimSpace(startFEN),
		moves:    append([]string(nil), moves...),
		pockets:  map[rules.Color]*Pocket{rules.White: newPocket(), rules.Black: newPocket()},
		geometry: geometry,
	}
	if _, err := s.FEN(); err != nil {
		return nil, err
	}
	if err := s.UpdatePockets(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) Variant() string  { return s.variant }
func (s *State) StartFEN() string { return s.startFEN }

// Moves returns a copy of the move list.
func (s *State) Moves() []string { return append([]string(nil), s.moves...) }

func (s *State) Geometry() rules.Geometry { return s.geometry }

func (s *State) FEN() (string, error) {
	return s.oracle.FEN(s.variant, s.startFEN, s.moves)
}

func (s *State) SideToMove() (rules.Color, error) {
	fen, err := s.FEN()
	if err != nil {
		return rules.White, err
	}
	return rules.SideToMove(fen), nil
}

// LegalMoves asks the oracle for the current legal moves. Results are
// never cached; every position change invalidates them.
func (s *State) LegalMoves() []string {
	moves, err := s.oracle.LegalMoves(s.variant, s.startFEN, s.moves)
	if err != nil {
		return nil
	}
	return moves
}

func (s *State) IsGameOver() bool { return len(s.LegalMoves()) == 0 }

func (s *State) IsLegal(move string) bool {
	for _, m := range s.LegalMoves() {
		if m == move {
			return true
		}
	}
	return false
}

// SAN converts the whole move list, or a single move from the current
// position when move is non-empty.
func (s *State) SAN(move string) ([]string, error) {
	if move == "" {
		return s.oracle.SANMoves(s.variant, s.startFEN, s.moves)
	}
	fen, err := s.FEN()
	if err != nil {
		return nil, err
	}
	san, err := s.oracle.SAN(s.variant, fen, move)
	if err != nil {
		return nil, err
	}
	return []string{san}, nil
}

// Push appends a move without validating it; callers check IsLegal first.
func (s *State) Push(move string) {
	s.moves = append(s.moves, move)
}

// Pop removes and returns the last move.
func (s *State) Pop() (string, error) {
	if len(s.moves) == 0 {
		return "", ErrNothingToUndo
	}
	last := s.moves[len(s.moves)-1]
	s.moves = s.moves[:len(s.moves)-1]
	return last, nil
}

// Pocket returns the hand of color.
func (s *State) Pocket(color rules.Color) *Pocket { return s.pockets[color] }

// UpdatePockets zeroes every known pocket piece and recounts from the FEN.
func (s *State) UpdatePockets() error {
	fen, err := s.FEN()
	if err != nil {
		return fmt.Errorf("update pockets: %w", err)
	}
	for _, p := range s.pockets {
		for _, piece := range p.order {
			p.counts[piece] = 0
		}
	}
	for color, pieces := range rules.PocketsFromFEN(fen) {
		for _, pp := range pieces {
			s.pockets[color].set(pp.Piece, pp.Count)
		}
	}
	return nil
}

// CharBoard returns the current board as rows of piece strings.
func (s *State) CharBoard() ([][]string, error) {
	fen, err := s.FEN()
	if err != nil {
		return nil, err
	}
	return rules.CharBoard(fen), nil
}
