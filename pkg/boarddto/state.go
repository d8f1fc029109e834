package boarddto

// Highlights mirrors the squares a display should mark.
type Highlights struct {
	Selected     []string `json:"selected,omitempty"`
	Destinations []string `json:"destinations,omitempty"`
	Origins      []string `json:"origins,omitempty"`
	Gating       []string `json:"gating,omitempty"`
}

type PocketSlot struct {
	Piece string `json:"piece"`
	Count int    `json:"count"`
}

type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

type EngineState struct {
	Loaded  bool              `json:"loaded"`
	ID      string            `json:"id,omitempty"`
	Name    string            `json:"name,omitempty"`
	Path    string            `json:"path,omitempty"`
	Paused  bool              `json:"paused"`
	Options map[string]string `json:"options,omitempty"`
}

// State is the full board view returned by GET /state and after every
// mutation.
type State struct {
	Variant    string                  `json:"variant"`
	StartFEN   string                  `json:"start_fen"`
	FEN        string                  `json:"fen"`
	Files      int                     `json:"files"`
	Ranks      int                     `json:"ranks"`
	Board      [][]string              `json:"board"`
	Pockets    map[string][]PocketSlot `json:"pockets,omitempty"`
	SideToMove string                  `json:"side_to_move"`
	Moves      []string                `json:"moves"`
	SAN        []string                `json:"san"`
	LegalMoves []string                `json:"legal_moves"`
	GameOver   bool                    `json:"game_over"`
	Opening    *Opening                `json:"opening,omitempty"`
	Selection  []string                `json:"selection"`
	Pending    []string                `json:"pending,omitempty"`
	Engine     EngineState             `json:"engine"`
	Analysis   []AnalysisLine          `json:"analysis,omitempty"`
}

// SelectResult is the outcome of a click, the move button or a choice.
type SelectResult struct {
	Outcome    string     `json:"outcome"`
	Played     string     `json:"played,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
	Highlights Highlights `json:"highlights"`
	State      *State     `json:"state"`
}
