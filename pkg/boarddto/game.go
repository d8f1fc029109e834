package boarddto

import "time"

// SavedGame is a stored snapshot of the edited game.
type SavedGame struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Variant  string    `json:"variant"`
	StartFEN string    `json:"start_fen"`
	Moves    []string  `json:"moves"`
	SAN      []string  `json:"san,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

type GameList struct {
	Games []SavedGame `json:"games"`
}
