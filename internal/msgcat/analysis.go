package msgcat

import (
	"strconv"
	"strings"

	"github.com/park285/fairyboard/internal/uci"
)

// ScoreText renders a score as pawns ("0.34") or mate distance ("#-3").
// Unknown units render as empty text.
func (c *Catalog) ScoreText(info uci.SearchInfo) string {
	kind, v, ok := info.ScoreKind()
	if !ok {
		return ""
	}
	var (
		out string
		err error
	)
	switch kind {
	case "cp":
		out, err = c.Render("analysis.score.cp", map[string]any{"Pawns": float64(v) / 100})
	case "mate":
		out, err = c.Render("analysis.score.mate", map[string]any{"Moves": v})
	}
	if err != nil {
		return ""
	}
	return out
}

// AnalysisLine renders one multi-PV entry as "depth<TAB>score<TAB>pv".
func (c *Catalog) AnalysisLine(info uci.SearchInfo) string {
	empty, _ := c.Render("analysis.empty", nil)
	depth := empty
	if info.Has(uci.FieldDepth) {
		depth = strconv.Itoa(info.Depth)
	}
	score := c.ScoreText(info)
	if score == "" {
		score = empty
	}
	out, err := c.Render("analysis.line", map[string]any{
		"Depth": depth,
		"Score": score,
		"PV":    strings.Join(info.PV, " "),
	})
	if err != nil {
		return depth + "\t" + score + "\t" + strings.Join(info.PV, " ")
	}
	return out
}

// ErrorText renders the message for an API error code. Unknown codes fall
// back to errors.internal.
func (c *Catalog) ErrorText(code, detail string) string {
	key := "errors." + code
	if !c.Has(key) {
		key = "errors.internal"
	}
	out, err := c.Render(key, map[string]any{"Detail": detail})
	if err != nil {
		return code
	}
	return out
}
