package boarddto

type SelectRequest struct {
	Square string `json:"square"`
}

type MoveRequest struct {
	// Move is optional; empty resolves the current selection.
	Move string `json:"move,omitempty"`
}

type ChooseRequest struct {
	Move string `json:"move"`
}

type NewGameRequest struct {
	Variant string `json:"variant"`
}

type FENRequest struct {
	FEN string `json:"fen"`
}

type EngineRequest struct {
	Path string `json:"path"`
}

type EngineOptionsRequest struct {
	Options map[string]string `json:"options"`
}

type VariantsLoadRequest struct {
	Path string `json:"path"`
}

type SaveGameRequest struct {
	Name string `json:"name,omitempty"`
}

type LoadGameRequest struct {
	ID string `json:"id"`
}

type ToggleResponse struct {
	Paused bool `json:"paused"`
}

type VariantsResponse struct {
	Variants []string `json:"variants"`
	Current  string   `json:"current"`
}
