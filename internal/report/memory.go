package report

import (
	"context"
	"sync"
)

// MemoryTable keeps appended rows in memory.
type MemoryTable struct {
	mu   sync.RWMutex
	rows []Row
}

// NewMemoryTable returns an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{}
}

// AppendRow stores a copy of row.
func (t *MemoryTable) AppendRow(_ context.Context, row Row) error {
	row.Cells = append([]Cell(nil), row.Cells...)
	t.mu.Lock()
	t.rows = append(t.rows, row)
	t.mu.Unlock()
	return nil
}

// Rows returns up to limit rows, newest first. A limit <= 0 returns all rows.
func (t *MemoryTable) Rows(_ context.Context, limit int) ([]Row, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.rows)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Row, 0, n)
	for i := len(t.rows) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, t.rows[i])
	}
	return out, nil
}

// Len returns the number of stored rows.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
