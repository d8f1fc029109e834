// Package selection narrows the legal move list down to the moves
// compatible with the squares a user has clicked.
package selection

import (
	"github.com/park285/fairyboard/internal/notation"
)

// Path is the ordered list of clicked square identifiers since the last
// resolution. It never holds more than notation.MaxSquares entries.
type Path []string

// Kind is the state of a resolution.
type Kind int

const (
	Empty Kind = iota
	Partial
	Unique
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Candidate is a legal move together with its parsed form.
type Candidate struct {
	Text string
	Move notation.Move
}

// Filter keeps the legal moves that contain every square of path, in
// oracle order. Moves that fail to parse are dropped and reported through
// the returned errors.
func Filter(path Path, legal []string) ([]Candidate, []error) {
	var (
		out  []Candidate
		errs []error
	)
	for _, text := range legal {
		mv, err := notation.Parse(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if mv.Contains(path) {
			out = append(out, Candidate{Text: text, Move: mv})
		}
	}
	return out, errs
}

// Resolve classifies the filtered candidates as Empty, Unique or Ambiguous.
// Malformed legal moves are excluded and returned as errors.
func Resolve(path Path, legal []string) (Kind, []Candidate, []error) {
	candidates, errs := Filter(path, legal)
	switch len(candidates) {
	case 0:
		return Empty, nil, errs
	case 1:
		return Unique, candidates, errs
	default:
		return Ambiguous, candidates, errs
	}
}

func texts(c []Candidate) []string {
	out := make([]string, len(c))
	for i := range c {
		out[i] = c[i].Text
	}
	return out
}
