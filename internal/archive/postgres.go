package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Schema creates the analysis table.
const Schema = `
CREATE TABLE IF NOT EXISTS position_analysis (
	id          UUID PRIMARY KEY,
	variant     TEXT NOT NULL,
	start_fen   TEXT NOT NULL,
	fen         TEXT NOT NULL,
	moves       TEXT[] NOT NULL,
	san         TEXT[] NOT NULL,
	pgn         TEXT NOT NULL,
	engine_id   TEXT NOT NULL,
	engine_name TEXT NOT NULL,
	lines       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS position_analysis_fen_idx ON position_analysis (fen, created_at DESC);`

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

// Open connects to Postgres and ensures the schema exists.
func Open(ctx context.Context, databaseURL string) (*sql.DB, Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create schema: %w", err)
	}
	return db, NewRepository(db), nil
}

func (r *repository) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("nil analysis record")
	}
	Prepare(rec, r.now())
	lines, err := json.Marshal(rec.Lines)
	if err != nil {
		return fmt.Errorf("marshal lines: %w", err)
	}

	const query = `
		INSERT INTO position_analysis (
			id, variant, start_fen, fen, moves, san, pgn,
			engine_id, engine_name, lines, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Variant,
		rec.StartFEN,
		rec.FEN,
		pq.Array(nonNil(rec.Moves)),
		pq.Array(nonNil(rec.SAN)),
		rec.PGN,
		rec.EngineID,
		rec.EngineName,
		lines,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicate
	}
	return nil
}

const selectColumns = `
		SELECT id, variant, start_fen, fen, moves, san, pgn,
			engine_id, engine_name, lines, created_at
		FROM position_analysis`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec   Record
		lines []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Variant,
		&rec.StartFEN,
		&rec.FEN,
		pq.Array(&rec.Moves),
		pq.Array(&rec.SAN),
		&rec.PGN,
		&rec.EngineID,
		&rec.EngineName,
		&lines,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &rec.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal lines: %w", err)
	}
	return &rec, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	return rec, nil
}

func (r *repository) RecentByFEN(ctx context.Context, fen string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, selectColumns+`
		WHERE fen = $1
		ORDER BY created_at DESC
		LIMIT $2`, fen, limit)
	if err != nil {
		return nil, fmt.Errorf("select analysis: %w", err)
	}
	defer rows.Close()

	out := make([]*Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
