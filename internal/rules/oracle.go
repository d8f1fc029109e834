// Package rules defines the contract of the rules oracle and ships a
// standard-chess implementation. The oracle answers pure, synchronous
// queries; callers never cache its legality results across moves.
package rules

import "errors"

var (
	ErrUnknownVariant           = errors.New("unknown variant")
	ErrInvalidFEN               = errors.New("invalid fen")
	ErrIllegalMove              = errors.New("illegal move")
	ErrVariantConfigUnsupported = errors.New("variant configuration not supported by this rules backend")
)

// Oracle is the rules backend consulted for move legality and notation.
type Oracle interface {
	Variants() []string
	StartFEN(variant string) (string, error)
	// FEN returns the position after playing moves from startFEN.
	FEN(variant, startFEN string, moves []string) (string, error)
	// LegalMoves returns the legal moves of the position in coordinate notation.
	LegalMoves(variant, startFEN string, moves []string) ([]string, error)
	// SAN converts one move played from fen into algebraic notation.
	SAN(variant, fen, move string) (string, error)
	// SANMoves converts the whole move list into algebraic notation.
	SANMoves(variant, startFEN string, moves []string) ([]string, error)
	Geometry(variant string) (Geometry, error)
	// LoadVariantConfig registers custom variants from configuration text.
	LoadVariantConfig(text string) error
}

// Geometry is the board size of a variant.
type Geometry struct {
	Files int
	Ranks int
}

// Color is a side to move or a pocket owner.
type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return White, false
	}
}
