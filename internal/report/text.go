package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
)

// TextTable collects rows and renders them as aligned columns on Flush.
// Columns are the union of all row headers in first-seen order.
type TextTable struct {
	mu   sync.Mutex
	w    io.Writer
	rows []Row
}

// NewTextTable returns a TextTable that renders to w.
func NewTextTable(w io.Writer) *TextTable {
	return &TextTable{w: w}
}

// AppendRow buffers row until the next Flush.
func (t *TextTable) AppendRow(_ context.Context, row Row) error {
	t.mu.Lock()
	t.rows = append(t.rows, row)
	t.mu.Unlock()
	return nil
}

// Flush writes every buffered row and clears the buffer.
func (t *TextTable) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.rows) == 0 {
		return nil
	}

	headers := unionHeaders(t.rows)
	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(append([]string{labelHeader}, headers...), "\t"))
	for _, row := range t.rows {
		fields := make([]string, 0, len(headers)+1)
		fields = append(fields, row.Title)
		for _, h := range headers {
			v, _ := row.Value(h)
			fields = append(fields, v)
		}
		fmt.Fprintln(tw, strings.Join(fields, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	t.rows = nil
	return nil
}

func unionHeaders(rows []Row) []string {
	seen := make(map[string]bool)
	var headers []string
	for _, row := range rows {
		for _, c := range row.Cells {
			if !seen[c.Header] {
				seen[c.Header] = true
				headers = append(headers, c.Header)
			}
		}
	}
	return headers
}
