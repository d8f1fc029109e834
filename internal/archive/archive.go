// Package archive records the last engine analysis of every position the
// user leaves.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("analysis record not found")
	ErrDuplicate = errors.New("analysis record already exists")
)

// Line is one multi-PV entry as it was displayed.
type Line struct {
	MultiPV   int      `json:"multipv"`
	Depth     int      `json:"depth"`
	Score     []string `json:"score"`
	ScoreText string   `json:"score_text"`
	PV        []string `json:"pv"`
}

type Record struct {
	ID         uuid.UUID
	Variant    string
	StartFEN   string
	FEN        string
	Moves      []string
	SAN        []string
	PGN        string
	EngineID   string
	EngineName string
	Lines      []Line
	CreatedAt  time.Time
}

type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	RecentByFEN(ctx context.Context, fen string, limit int) ([]*Record, error)
}

// Prepare fills the id, timestamp and PGN of rec when missing.
func Prepare(rec *Record, now time.Time) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	if rec.PGN == "" {
		rec.PGN = BuildPGN(rec.Variant, rec.StartFEN, rec.SAN, rec.CreatedAt)
	}
}

// BuildPGN renders the SAN list with Variant and FEN headers. Black to
// move at the start FEN begins the movetext with "1...".
func BuildPGN(variant, startFEN string, san []string, date time.Time) string {
	var b strings.Builder
	b.WriteString("[Event \"Analysis\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	if v := strings.TrimSpace(variant); v != "" && v != "chess" {
		b.WriteString(fmt.Sprintf("[Variant \"%s\"]\n", sanitizePGN(v)))
	}
	if f := strings.TrimSpace(startFEN); f != "" {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(f)))
	}
	b.WriteString("[Result \"*\"]\n\n")

	ply := 0
	if fields := strings.Fields(startFEN); len(fields) > 1 && fields[1] == "b" {
		ply = 1
		if len(san) > 0 {
			b.WriteString("1... ")
		}
	}
	for i, mv := range san {
		p := ply + i
		if p%2 == 0 {
			b.WriteString(fmt.Sprintf("%d. ", p/2+1))
		}
		b.WriteString(strings.TrimSpace(mv))
		b.WriteString(" ")
	}
	b.WriteString("*")
	return b.String()
}

func sanitizePGN(s string) string {
	return strings.NewReplacer("\\", "\\\\", "\"", "\\\"").Replace(s)
}
