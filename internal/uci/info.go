package uci

import (
	"strconv"
	"strings"
)

// Field marks which keys an info line carried.
type Field uint16

const (
	FieldDepth Field = 1 << iota
	FieldSelDepth
	FieldMultiPV
	FieldNodes
	FieldNPS
	FieldTime
	FieldScore
	FieldPV
)

var infoKeywords = map[string]Field{
	"depth":    FieldDepth,
	"seldepth": FieldSelDepth,
	"multipv":  FieldMultiPV,
	"nodes":    FieldNodes,
	"nps":      FieldNPS,
	"time":     FieldTime,
	"score":    FieldScore,
	"pv":       FieldPV,
}

// SearchInfo is one parsed "info" line. Only the keys recorded in the
// presence mask are meaningful.
type SearchInfo struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Nodes    int64
	NPS      int64
	Time     int64
	Score    []string
	PV       []string

	present Field
}

func (i SearchInfo) Has(f Field) bool { return i.present&f != 0 }

// Index is the multi-PV slot of the line, 1 when the engine omitted it.
func (i SearchInfo) Index() int {
	if i.Has(FieldMultiPV) {
		return i.MultiPV
	}
	return 1
}

// ProcessLine parses an engine output line. Only "info" lines other than
// "info string" produce a record. Values accumulate under the most recent
// keyword; tokens before the first keyword are dropped. Scalar keys keep
// their first token and are left out when it is missing or not an integer.
func ProcessLine(line string) (SearchInfo, bool) {
	items := strings.Fields(line)
	if len(items) < 2 || items[0] != "info" || items[1] == "string" {
		return SearchInfo{}, false
	}

	var (
		info   SearchInfo
		key    Field
		values []string
	)
	flush := func() {
		if key != 0 {
			info.set(key, values)
		}
	}
	for _, tok := range items[1:] {
		if f, ok := infoKeywords[tok]; ok {
			flush()
			key = f
			values = nil
			continue
		}
		values = append(values, tok)
	}
	flush()
	return info, true
}

func (i *SearchInfo) set(f Field, values []string) {
	switch f {
	case FieldScore:
		i.Score = append([]string{}, values...)
		i.present |= f
		return
	case FieldPV:
		i.PV = append([]string{}, values...)
		i.present |= f
		return
	}
	if len(values) == 0 {
		return
	}
	n, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return
	}
	switch f {
	case FieldDepth:
		i.Depth = int(n)
	case FieldSelDepth:
		i.SelDepth = int(n)
	case FieldMultiPV:
		i.MultiPV = int(n)
	case FieldNodes:
		i.Nodes = n
	case FieldNPS:
		i.NPS = n
	case FieldTime:
		i.Time = n
	}
	i.present |= f
}

// ScoreKind returns the unit and value of the score, e.g. ("cp", 34).
func (i SearchInfo) ScoreKind() (string, int, bool) {
	if len(i.Score) < 2 {
		return "", 0, false
	}
	v, err := strconv.Atoi(i.Score[1])
	if err != nil {
		return "", 0, false
	}
	switch i.Score[0] {
	case "cp", "mate":
		return i.Score[0], v, true
	}
	return "", 0, false
}

// ID is the engine identification announced in response to "uci".
type ID struct {
	Name   string
	Author string
}

// ParseID reads an "id name ..." or "id author ..." line into id.
func ParseID(line string, id *ID) bool {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "id ")
	if !ok {
		return false
	}
	key, value, _ := strings.Cut(strings.TrimSpace(rest), " ")
	value = strings.TrimSpace(value)
	switch key {
	case "name":
		id.Name = value
	case "author":
		id.Author = value
	default:
		return false
	}
	return true
}
