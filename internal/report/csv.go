package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
)

// CSVTable streams rows as CSV. The header is taken from the first row; later
// rows are written in that column order, with empty values for missing
// columns. Columns absent from the first row are dropped.
type CSVTable struct {
	mu     sync.Mutex
	w      *csv.Writer
	header []string
}

// NewCSVTable returns a CSVTable writing to w.
func NewCSVTable(w io.Writer) *CSVTable {
	return &CSVTable{w: csv.NewWriter(w)}
}

// AppendRow writes row and flushes the underlying writer.
func (t *CSVTable) AppendRow(_ context.Context, row Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.header == nil {
		t.header = row.Headers()
		if err := t.w.Write(append([]string{labelHeader}, t.header...)); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	record := make([]string, 0, len(t.header)+1)
	record = append(record, row.Title)
	for _, h := range t.header {
		v, _ := row.Value(h)
		record = append(record, v)
	}
	if err := t.w.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}

	t.w.Flush()
	return t.w.Error()
}
