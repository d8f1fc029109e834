package rules

import (
	"strings"
	"unicode"
)

// WallChar marks squares that are not part of the playing area.
const WallChar = '*'

// Empty is the char-board value of an empty square.
const Empty = " "

func boardField(fen string) string {
	field, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	return field
}

// GeometryFromFEN counts files on the first rank and ranks in the board field.
// Empty-square runs may be multi-digit.
func GeometryFromFEN(fen string) Geometry {
	field := boardField(fen)
	first, _, _ := strings.Cut(field, "/")
	files := 0
	var last rune
	for _, c := range first {
		switch {
		case unicode.IsDigit(c):
			files += int(c - '0')
			if unicode.IsDigit(last) {
				files += 9 * int(last-'0')
			}
		case unicode.IsLetter(c) || c == WallChar:
			files++
		}
		last = c
	}
	return Geometry{Files: files, Ranks: strings.Count(field, "/") + 1}
}

// CharBoard expands the board field into rows of piece strings, top rank first.
// Promoted pieces keep their "+" prefix; empty squares are Empty.
func CharBoard(fen string) [][]string {
	field := boardField(fen)
	var (
		board  [][]string
		rank   []string
		prefix string
		last   rune
	)
	for _, c := range field {
		switch {
		case c == '/':
			board = append(board, rank)
			rank = nil
		case unicode.IsDigit(c):
			n := int(c - '0')
			if unicode.IsDigit(last) {
				n += 9 * int(last-'0')
			}
			for i := 0; i < n; i++ {
				rank = append(rank, Empty)
			}
		case c == '+':
			prefix = "+"
		case c == '~':
			prefix = ""
			last = 0
			continue
		default:
			rank = append(rank, prefix+string(c))
			prefix = ""
		}
		last = c
	}
	return append(board, rank)
}

// SideToMove reads the active color field.
func SideToMove(fen string) Color {
	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return Black
	}
	return White
}

// PocketPiece is one pocket entry in first-seen order.
type PocketPiece struct {
	Piece string
	Count int
}

// PocketsFromFEN counts the pieces held in hand, written as "[...]" after
// the board. Lowercase letters belong to black; keys are uppercase.
func PocketsFromFEN(fen string) map[Color][]PocketPiece {
	out := map[Color][]PocketPiece{White: nil, Black: nil}
	field, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	open := strings.IndexByte(field, '[')
	end := strings.LastIndexByte(field, ']')
	if open < 0 || end < open {
		return out
	}
	for _, c := range field[open+1 : end] {
		if !unicode.IsLetter(c) {
			continue
		}
		color := White
		if unicode.IsLower(c) {
			color = Black
		}
		piece := string(unicode.ToUpper(c))
		list := out[color]
		found := false
		for i := range list {
			if list[i].Piece == piece {
				list[i].Count++
				found = true
				break
			}
		}
		if !found {
			list = append(list, PocketPiece{Piece: piece, Count: 1})
		}
		out[color] = list
	}
	return out
}
