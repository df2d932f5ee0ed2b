package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const underwayTable = "underway_summary"

// SQLiteAdapter reads the underway summary table from a SQLite file.
// Timestamps are stored as Unix epoch numbers and pass through raw.
type SQLiteAdapter struct {
	path string
	db   *sql.DB
}

// NewSQLite opens the database read-only. The file is not touched until
// the first Fetch, so a missing or locked file surfaces as ErrUnavailable
// per call rather than a construction failure.
func NewSQLite(path string) (*SQLiteAdapter, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	return &SQLiteAdapter{path: path, db: db}, nil
}

func (a *SQLiteAdapter) Name() string { return "sqlite" }

func (a *SQLiteAdapter) Fetch(ctx context.Context, since *time.Time) ([]Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", underwayTable, TimeColumn)
	var args []any
	if since != nil {
		query = fmt.Sprintf("SELECT * FROM %s WHERE %s > ? ORDER BY %s",
			underwayTable, TimeColumn, TimeColumn)
		args = append(args, since.Unix())
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("sqlite query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, unavailable("sqlite columns", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, unavailable("sqlite scan", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sqlite rows", err)
	}

	return out, nil
}

// Close releases the underlying connection pool.
func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}
