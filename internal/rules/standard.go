package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// VariantChess is the only variant the standard backend knows.
const VariantChess = "chess"

// StandardStartFEN is the initial position of orthodox chess.
const StandardStartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Standard answers oracle queries for orthodox chess.
type Standard struct{}

func NewStandard() *Standard { return &Standard{} }

func (s *Standard) Variants() []string { return []string{VariantChess} }

func (s *Standard) StartFEN(variant string) (string, error) {
	if err := checkVariant(variant); err != nil {
		return "", err
	}
	return StandardStartFEN, nil
}

func (s *Standard) FEN(variant, startFEN string, moves []string) (string, error) {
	game, err := replay(variant, startFEN, moves)
	if err != nil {
		return "", err
	}
	return game.FEN(), nil
}

func (s *Standard) LegalMoves(variant, startFEN string, moves []string) ([]string, error) {
	game, err := replay(variant, startFEN, moves)
	if err != nil {
		return nil, err
	}
	if game.Outcome() != nchess.NoOutcome {
		return []string{}, nil
	}
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, mv := range valid {
		out = append(out, strings.ToLower(mv.String()))
	}
	return out, nil
}

func (s *Standard) SAN(variant, fen, move string) (string, error) {
	game, err := replay(variant, fen, nil)
	if err != nil {
		return "", err
	}
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, strings.ToLower(strings.TrimSpace(move)))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrIllegalMove, move, err)
	}
	return nchess.AlgebraicNotation{}.Encode(pos, mv), nil
}

func (s *Standard) SANMoves(variant, startFEN string, moves []string) ([]string, error) {
	game, err := replay(variant, startFEN, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(moves))
	notationUCI := nchess.UCINotation{}
	for _, raw := range moves {
		pos := game.Position()
		mv, err := notationUCI.Decode(pos, strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIllegalMove, raw, err)
		}
		out = append(out, nchess.AlgebraicNotation{}.Encode(pos, mv))
		if err := game.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIllegalMove, raw, err)
		}
	}
	return out, nil
}

func (s *Standard) Geometry(variant string) (Geometry, error) {
	if err := checkVariant(variant); err != nil {
		return Geometry{}, err
	}
	return GeometryFromFEN(StandardStartFEN), nil
}

func (s *Standard) LoadVariantConfig(text string) error {
	return ErrVariantConfigUnsupported
}

func checkVariant(variant string) error {
	if variant != VariantChess {
		return fmt.Errorf("%w: %s", ErrUnknownVariant, variant)
	}
	return nil
}

func replay(variant, startFEN string, moves []string) (*nchess.Game, error) {
	if err := checkVariant(variant); err != nil {
		return nil, err
	}
	fen := strings.TrimSpace(startFEN)
	if fen == "" {
		fen = StandardStartFEN
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	game := nchess.NewGame(opt)
	for _, raw := range moves {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(raw)), nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIllegalMove, raw, err)
		}
	}
	return game, nil
}
