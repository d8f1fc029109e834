package rules

import (
	"strings"
	"sync"

	"github.com/corentings/chess/v2/opening"
)

// Opening names the ECO line a game follows.
type Opening struct {
	ECO  string
	Name string
}

// OpeningNamer is implemented by oracles that can name openings.
type OpeningNamer interface {
	Opening(variant, startFEN string, moves []string) (Opening, bool)
}

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

func ecoCatalog() *opening.BookECO {
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// Opening returns the deepest ECO entry matching moves. Only games started
// from the initial position have a name.
func (s *Standard) Opening(variant, startFEN string, moves []string) (Opening, bool) {
	if len(moves) == 0 {
		return Opening{}, false
	}
	if fen := strings.TrimSpace(startFEN); fen != "" && fen != StandardStartFEN {
		return Opening{}, false
	}
	game, err := replay(variant, "", moves)
	if err != nil {
		return Opening{}, false
	}
	o := ecoCatalog().Find(game.Moves())
	if o == nil {
		return Opening{}, false
	}
	return Opening{ECO: o.Code(), Name: o.Title()}, true
}
