// Package report writes classification summaries as rows of a result table.
//
// A Row is a titled, ordered list of cells. Backends implement ResultTable:
//   - TextTable renders aligned columns when flushed.
//   - CSVTable streams rows as CSV.
//   - MemoryTable keeps rows in process.
//   - SQLiteTable persists rows so history survives restarts.
package report

import (
	"context"
	"time"
)

// Cell is one column value of a row.
type Cell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// Row is a titled set of cells with a stable column order.
type Row struct {
	RunID     string    `json:"run_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Cells     []Cell    `json:"cells"`
}

// Add appends a cell.
func (r *Row) Add(header, value string) {
	r.Cells = append(r.Cells, Cell{Header: header, Value: value})
}

// Headers returns the column names in order.
func (r Row) Headers() []string {
	headers := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		headers[i] = c.Header
	}
	return headers
}

// Value returns the value stored under header.
func (r Row) Value(header string) (string, bool) {
	for _, c := range r.Cells {
		if c.Header == header {
			return c.Value, true
		}
	}
	return "", false
}

// ResultTable receives summary rows. Implementations must be safe for
// concurrent use.
type ResultTable interface {
	AppendRow(ctx context.Context, row Row) error
}

// labelHeader names the title column in rendered tables.
const labelHeader = "Label"

// History is a ResultTable that can list what was appended.
type History interface {
	ResultTable
	Rows(ctx context.Context, limit int) ([]Row, error)
}
