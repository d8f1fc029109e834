package uci

import (
	"maps"
	"slices"
	"sync"
)

// MultiPV keeps the latest scored info line per PV index.
type MultiPV struct {
	mu      sync.Mutex
	entries map[int]SearchInfo
}

func NewMultiPV() *MultiPV {
	return &MultiPV{entries: make(map[int]SearchInfo)}
}

// Update stores info under its index. Lines without a score are not
// stored and report false.
func (m *MultiPV) Update(info SearchInfo) bool {
	if !info.Has(FieldScore) {
		return false
	}
	m.mu.Lock()
	m.entries[info.Index()] = info
	m.mu.Unlock()
	return true
}

// Snapshot returns the entries in ascending index order.
func (m *MultiPV) Snapshot() []SearchInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := slices.Sorted(maps.Keys(m.entries))
	out := make([]SearchInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.entries[k])
	}
	return out
}

func (m *MultiPV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MultiPV) Reset() {
	m.mu.Lock()
	clear(m.entries)
	m.mu.Unlock()
}
