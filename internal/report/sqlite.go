package report

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteTable persists rows in a SQLite database.
type SQLiteTable struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it
// to the latest schema.
func OpenSQLite(path string) (*SQLiteTable, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteTable{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	// m is not closed: closing it would close db.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// AppendRow inserts row.
func (t *SQLiteTable) AppendRow(ctx context.Context, row Row) error {
	cells, err := json.Marshal(row.Cells)
	if err != nil {
		return fmt.Errorf("failed to encode cells: %w", err)
	}
	created := row.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = t.db.ExecContext(ctx,
		`INSERT INTO report_rows (run_id, title, created_at, cells) VALUES (?, ?, ?, ?)`,
		row.RunID, row.Title, created.UTC().Format(time.RFC3339Nano), string(cells))
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	return nil
}

// Rows returns up to limit rows, newest first. A limit <= 0 returns all rows.
func (t *SQLiteTable) Rows(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT run_id, title, created_at, cells FROM report_rows ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row     Row
			created string
			cells   string
		)
		if err := rows.Scan(&row.RunID, &row.Title, &created, &cells); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if row.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
		}
		if err := json.Unmarshal([]byte(cells), &row.Cells); err != nil {
			return nil, fmt.Errorf("invalid cells for run %s: %w", row.RunID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the database.
func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

// migrateLogger implements migrate.Logger on top of the package logger.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logging.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool {
	return logging.DebugEnabled()
}
