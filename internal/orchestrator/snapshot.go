package orchestrator

import (
	"github.com/park285/fairyboard/internal/rules"
	"github.com/park285/fairyboard/pkg/boarddto"
)

// Snapshot returns the full board view.
func (o *Orchestrator) Snapshot() boarddto.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() boarddto.State {
	st := o.state
	g := st.Geometry()
	out := boarddto.State{
		Variant:    st.Variant(),
		StartFEN:   st.StartFEN(),
		Files:      g.Files,
		Ranks:      g.Ranks,
		Moves:      nonNil(st.Moves()),
		LegalMoves: nonNil(st.LegalMoves()),
		Selection:  nonNil(o.selector.Path()),
		Pending:    o.selector.Pending(),
	}
	out.GameOver = len(out.LegalMoves) == 0
	if fen, err := st.FEN(); err == nil {
		out.FEN = fen
		out.SideToMove = rules.SideToMove(fen).String()
	}
	if board, err := st.CharBoard(); err == nil {
		out.Board = board
	}
	if san, err := st.SAN(""); err == nil {
		out.SAN = nonNil(san)
	} else {
		out.SAN = []string{}
	}
	if namer, ok := o.oracle.(rules.OpeningNamer); ok {
		if op, ok := namer.Opening(st.Variant(), st.StartFEN(), st.Moves()); ok {
			out.Opening = &boarddto.Opening{ECO: op.ECO, Name: op.Name}
		}
	}
	for _, c := range []rules.Color{rules.White, rules.Black} {
		p := st.Pocket(c)
		pieces := p.Pieces()
		if len(pieces) == 0 {
			continue
		}
		if out.Pockets == nil {
			out.Pockets = make(map[string][]boarddto.PocketSlot, 2)
		}
		slots := make([]boarddto.PocketSlot, 0, len(pieces))
		for _, piece := range pieces {
			slots = append(slots, boarddto.PocketSlot{Piece: piece, Count: p.Count(piece)})
		}
		out.Pockets[c.String()] = slots
	}

	out.Engine = boarddto.EngineState{Paused: true, Options: o.options.Clone()}
	if o.engine != nil {
		out.Engine = boarddto.EngineState{
			Loaded:  true,
			ID:      o.engine.ID().String(),
			Name:    o.engine.Identity().Name,
			Path:    o.enginePath,
			Paused:  o.engine.Paused(),
			Options: o.options.Clone(),
		}
		out.Analysis = o.analysis(o.engine).Lines
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
