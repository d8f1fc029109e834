package boarddto

import "time"

// AnalysisLine is one multi-PV entry.
type AnalysisLine struct {
	MultiPV   int      `json:"multipv"`
	Depth     int      `json:"depth,omitempty"`
	Score     []string `json:"score"`
	ScoreText string   `json:"score_text"`
	PV        []string `json:"pv"`
	Text      string   `json:"text"`
}

// Analysis is broadcast on every multi-PV update, lines in index order.
type Analysis struct {
	EngineID   string         `json:"engine_id"`
	EngineName string         `json:"engine_name"`
	Lines      []AnalysisLine `json:"lines"`
}

// ArchivedAnalysis is an analysis recorded when the user left a position.
type ArchivedAnalysis struct {
	ID         string         `json:"id"`
	Variant    string         `json:"variant"`
	FEN        string         `json:"fen"`
	Moves      []string       `json:"moves"`
	PGN        string         `json:"pgn"`
	EngineName string         `json:"engine_name,omitempty"`
	Lines      []AnalysisLine `json:"lines"`
	CreatedAt  time.Time      `json:"created_at"`
}
