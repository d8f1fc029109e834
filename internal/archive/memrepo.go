package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DB 미설정 시 프로세스 내 메모리에 기록 보관.
type memrepo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Record
	byFEN map[string][]*Record
	now   func() time.Time
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:  make(map[uuid.UUID]*Record),
		byFEN: make(map[string][]*Record),
		now:   time.Now,
	}
}

func (m *memrepo) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrDuplicate
	}
	Prepare(rec, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[rec.ID]; ok {
		return ErrDuplicate
	}
	cp := clone(rec)
	m.byID[cp.ID] = cp
	m.byFEN[cp.FEN] = append(m.byFEN[cp.FEN], cp)
	return nil
}

func (m *memrepo) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *memrepo) RecentByFEN(ctx context.Context, fen string, limit int) ([]*Record, error) {
	m.mu.RLock()
	items := append([]*Record(nil), m.byFEN[fen]...)
	m.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]*Record, len(items))
	for i, rec := range items {
		out[i] = clone(rec)
	}
	return out, nil
}

func clone(rec *Record) *Record {
	cp := *rec
	cp.Moves = append([]string(nil), rec.Moves...)
	cp.SAN = append([]string(nil), rec.SAN...)
	cp.Lines = make([]Line, len(rec.Lines))
	for i, l := range rec.Lines {
		l.Score = append([]string(nil), l.Score...)
		l.PV = append([]string(nil), l.PV...)
		cp.Lines[i] = l
	}
	return &cp
}
